package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/usezoracle/tba-be/internal/launchpad"
	"github.com/usezoracle/tba-be/internal/sse"
)

func (s *Server) handleLaunchpadList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, limit := pagination(r)
	offset := queryInt(r, "offset", 0)
	tokens, pag, err := s.launchpad.List(r.Context(), page, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"data": tokens, "pagination": pag})
}

// handleLaunchpadStream streams the launchpad feed with a fixed `snapshot`
// initial event and anonymous delta events, per spec.md §4.14's table entry
// for the launchpad resource.
func (s *Server) handleLaunchpadStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	initial := queryInt(r, "initial", 100)

	err := sse.Serve(w, r, s.kv, launchpad.Channel, "", func(ctx context.Context) (string, any, error) {
		tokens, err := s.launchpad.Snapshot(ctx, initial)
		if err != nil {
			return "", nil, err
		}
		return "snapshot", tokens, nil
	})
	if err != nil {
		logger.Warnw("launchpad stream ended with error", "err", err)
	}
}
