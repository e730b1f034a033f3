package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/sse"
)

func (s *Server) handleReactionCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := parseReactionRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := s.reactions.React(r.Context(), req.TokenAddress, domain.ReactionKind(req.Emoji), req.Increment)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"id": id, "status": "Processing"})
}

func (s *Server) handleReactionCounts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	counts, err := s.reactions.Counts(r.Context(), ps.ByName("tokenAddress"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, counts)
}

func (s *Server) handleReactionStream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	token := ps.ByName("tokenAddress")

	err := sse.Serve(w, r, s.kv, "emojiUpdates:"+lower(token), "emojiCountUpdate", func(ctx context.Context) (string, any, error) {
		counts, err := s.reactions.Counts(ctx, token)
		if err != nil {
			return "", nil, err
		}
		return "initialEmojiCounts", counts, nil
	})
	if err != nil {
		logger.Warnw("reaction stream ended with error", "token", token, "err", err)
	}
}
