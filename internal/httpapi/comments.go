package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/usezoracle/tba-be/internal/sse"
)

func (s *Server) handleCommentCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := parseCommentCreateRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	stub, err := s.comments.Create(r.Context(), req.TokenAddress, req.WalletAddress, req.Content)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, stub)
}

func (s *Server) handleCommentList(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit := queryInt(r, "limit", 50)
	list, err := s.comments.Latest(r.Context(), ps.ByName("tokenAddress"), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) handleCommentStream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	token := ps.ByName("tokenAddress")
	initial := queryInt(r, "initial", 50)

	err := sse.Serve(w, r, s.kv, "comments:"+lower(token), "newComment", func(ctx context.Context) (string, any, error) {
		list, err := s.comments.Latest(ctx, token, initial)
		if err != nil {
			return "", nil, err
		}
		return "initialComments", list, nil
	})
	if err != nil {
		logger.Warnw("comment stream ended with error", "token", token, "err", err)
	}
}
