package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/indexer"
	"github.com/hyperjump/wraith/internal/models"
)

// maxBodyBytes caps request bodies; scraped pages can be large.
const maxBodyBytes = 8 << 20

// CleanRequest is the body of POST /api/v1/clean.
type CleanRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.TurnRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("chat request", zap.String("session_id", req.SessionID), zap.String("request_id", RequestIDFrom(r.Context())))

	res, err := s.deps.Chat.RunTurn(r.Context(), req.SessionID, req.Text)
	resp := &models.TurnResponse{SessionID: req.SessionID}
	if res != nil {
		resp.Reply = res.Reply
	}
	if err != nil {
		kind := apperr.KindOf(err)
		resp.ErrorKind = kind.String()
		if resp.Reply == "" {
			resp.Reply = apperr.UserMessage(kind)
		}
		s.logger.Warn("turn failed", zap.String("session_id", req.SessionID), zap.String("kind", kind.String()), zap.Error(err))
		s.respondJSON(w, turnStatus(kind), resp)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// turnStatus maps a turn error kind to an HTTP status. Scoring and generation
// failures still carry an apology reply, so they are not HTTP errors.
func turnStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.ScoringFailed, apperr.GenerationFailed, apperr.NoResultsFound:
		return http.StatusOK
	default:
		return errorStatus(kind)
	}
}

func errorStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.StoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.StoreOperationFailed, apperr.ScoringFailed, apperr.GenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	res, err := s.deps.Retriever.RetrieveThreads(r.Context(), req.Query)
	if err != nil {
		kind := apperr.KindOf(err)
		s.logger.Error("retrieve failed", zap.String("kind", kind.String()), zap.Error(err))
		s.respondError(w, errorStatus(kind), apperr.UserMessage(kind))
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RetrieveResponse{
		Context:   res.Context,
		Threads:   res.Threads,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	domains := s.deps.Domains
	if domains == nil {
		domains = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"domains": domains})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	state, err := s.deps.Sessions.Load(r.Context(), id)
	if err != nil {
		kind := apperr.KindOf(err)
		s.logger.Error("load session failed", zap.String("session_id", id), zap.Error(err))
		s.respondError(w, errorStatus(kind), apperr.UserMessage(kind))
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.deps.Sessions.Delete(r.Context(), id); err != nil {
		kind := apperr.KindOf(err)
		s.logger.Error("delete session failed", zap.String("session_id", id), zap.Error(err))
		s.respondError(w, errorStatus(kind), apperr.UserMessage(kind))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIngestThread(w http.ResponseWriter, r *http.Request) {
	var in models.ThreadInput
	if !s.decode(w, r, &in) {
		return
	}
	n, err := s.deps.Ingester.IngestThread(r.Context(), &in)
	if err != nil {
		kind := apperr.KindOf(err)
		s.logger.Error("ingest failed", zap.String("thread_id", in.ThreadID), zap.Error(err))
		msg := apperr.UserMessage(kind)
		var ae *apperr.Error
		if kind == apperr.InvalidInput && errors.As(err, &ae) && ae.Err != nil {
			msg = ae.Err.Error()
		}
		s.respondError(w, errorStatus(kind), msg)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"thread_id": in.ThreadID, "chunks": n, "status": "indexed"})
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	var req CleanRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respondJSON(w, http.StatusOK, CleanRequest{Text: indexer.CleanScraped(req.Text)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.logger.Error("status: stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
