package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"puppethook/internal/dispatch"
	"puppethook/internal/security"
	"puppethook/internal/webhook"

	"github.com/go-chi/chi/v5"
)

const (
	MaxPayloadBytes     = 1_000_000 // 1 MB
	RecentDispatchLimit = 10        // Number of recent dispatches to return in status endpoint
)

// HandlePayload handles environment deployment webhooks
func (s *Server) HandlePayload(w http.ResponseWriter, r *http.Request) {
	s.handleWebhook(w, r, dispatch.KindEnvironment)
}

// HandleModule handles module deployment webhooks
func (s *Server) HandleModule(w http.ResponseWriter, r *http.Request) {
	s.handleWebhook(w, r, dispatch.KindModule)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request, kind dispatch.Kind) {
	// ContentLength can be -1 if not set; the body read is bounded either way
	if r.ContentLength > MaxPayloadBytes {
		s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Payload too large"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Payload too large"})
			return
		}
		s.Logger.Error("Failed to read request body", "error", err, "path", r.URL.Path)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"message": "Failed to read payload"})
		return
	}

	d := webhook.NewDescriptor(r.Header, body, clientIP(r), r.URL.Path)
	s.Webhook.Handle(r.Context(), kind, d).Write(w)
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":             "ok",
		"dispatch_mode":      s.Config.DispatchMode,
		"protected":          s.Config.IsProtected(),
		"signature_verified": s.Config.VerifiesSignatures(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatus handles dispatch status requests
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	environment := chi.URLParam(r, "environment")

	if err := security.ValidateEnvironmentName(environment); err != nil {
		s.Logger.Warn("Invalid environment name in status request", "environment", environment, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("Invalid environment name: %v", err)})
		return
	}

	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Dispatch history not available"})
		return
	}

	latest, err := s.History.LatestDispatch(r.Context(), environment)
	if err != nil {
		s.Logger.Error("Failed to get latest dispatch", "error", err, "environment", environment)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dispatch status"})
		return
	}
	if latest == nil {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"message": "No dispatches recorded"})
		return
	}

	recent, err := s.History.DispatchHistory(r.Context(), environment, RecentDispatchLimit)
	if err != nil {
		s.Logger.Error("Failed to get dispatch history", "error", err, "environment", environment)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to fetch dispatch status"})
		return
	}

	response := map[string]interface{}{
		"environment":       environment,
		"latest_dispatch":   latest,
		"recent_dispatches": recent,
	}

	s.respondJSON(w, http.StatusOK, response)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
