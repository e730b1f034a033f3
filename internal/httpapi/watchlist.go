package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/usezoracle/tba-be/internal/apperr"
)

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := parseWatchlistTokensRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	added, err := s.watchlist.Add(r.Context(), req.WalletAddress, req.TokenAddresses)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"addedCount": added})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := parseWatchlistTokensRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	removed, err := s.watchlist.Remove(r.Context(), req.WalletAddress, req.TokenAddresses)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"removedCount": removed})
}

func (s *Server) handleWatchlistGet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	wallet := r.URL.Query().Get("walletAddress")
	if wallet == "" {
		writeErr(w, apperr.Validation("walletAddress is required"))
		return
	}
	page, limit := pagination(r)
	entries, pag, err := s.watchlist.List(r.Context(), wallet, page, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"data": entries, "pagination": pag})
}

func (s *Server) handleWatchlistCheck(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ok, err := s.watchlist.Contains(r.Context(), ps.ByName("wallet"), ps.ByName("token"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"isInWatchlist": ok})
}

func (s *Server) handleWatchlistCount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	count, err := s.watchlist.Count(r.Context(), ps.ByName("wallet"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"count": count})
}
