package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/tokenrepo"
)

func (s *Server) handleTokensAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	records := s.tokens.All()
	if len(records) == 0 {
		writeErr(w, apperr.NotFound("no tokens discovered yet"))
		return
	}
	writeData(w, http.StatusOK, records)
}

func (s *Server) handleTokensZora(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writePartition(w, tokenrepo.PartitionPrimary)
}

func (s *Server) handleTokensTba(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writePartition(w, tokenrepo.PartitionPaired)
}

func (s *Server) writePartition(w http.ResponseWriter, name string) {
	partition, ok := s.tokens.ByPartition(name)
	if !ok || len(partition.Records) == 0 {
		writeErr(w, apperr.NotFound("partition "+name+" is empty"))
		return
	}
	writeData(w, http.StatusOK, partition.Records)
}

func (s *Server) handleTokensMetadata(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	meta := s.tokens.Meta()
	writeData(w, http.StatusOK, meta)
}

func (s *Server) handleTokensScan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ran := s.scanner.TriggerScan(r.Context())
	if !ran {
		writeData(w, http.StatusOK, map[string]any{"triggered": false, "reason": "scan already in progress"})
		return
	}
	result, _ := s.scanner.LastResult()
	writeData(w, http.StatusOK, map[string]any{"triggered": true, "result": result})
}
