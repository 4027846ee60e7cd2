package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"i4.energy/across/serbridge/bridge"
	"i4.energy/across/serbridge/settings"
)

// maxRecordSize bounds the body of a configuration update.
const maxRecordSize = 4096

// Bridge is the remote-update surface of the running bridge loop.
type Bridge interface {
	Status(ctx context.Context) (bridge.Status, error)
	Query(ctx context.Context) ([]byte, error)
	Apply(ctx context.Context, password string, text []byte) ([]byte, error)
	Reboot(ctx context.Context, password string) error
}

// Server handles incoming HTTP requests for inspecting and updating the
// running bridge
type Server struct {
	Logger *slog.Logger
	Bridge Bridge
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /config", s.handleGetConfig)
	mux.HandleFunc("POST /config", s.handleSetConfig)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /restart", s.handleRestart)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// sendBridgeError maps a bridge failure to a status code.
func (s *Server) sendBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bridge.ErrUnauthorized):
		s.sendError(w, "", http.StatusUnauthorized)
	case errors.Is(err, settings.ErrMalformed):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.sendError(w, "bridge not responding", http.StatusServiceUnavailable)
	default:
		s.sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := s.Bridge.Query(r.Context())
	if err != nil {
		s.Logger.Error("Failed to read configuration", "error", err)
		s.sendBridgeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordSize+1))
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > maxRecordSize {
		s.sendError(w, "configuration record too large", http.StatusRequestEntityTooLarge)
		return
	}

	raw, err := s.Bridge.Apply(r.Context(), bearer(r), body)
	if err != nil {
		s.Logger.Warn("Configuration update rejected", "error", err)
		s.sendBridgeError(w, err)
		return
	}

	s.Logger.Info("Configuration updated, restarting bridge")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write(raw)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Bridge.Status(r.Context())
	if err != nil {
		s.sendBridgeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.Bridge.Reboot(r.Context(), bearer(r)); err != nil {
		s.Logger.Warn("Restart rejected", "error", err)
		s.sendBridgeError(w, err)
		return
	}
	s.Logger.Info("Restart requested")
	w.WriteHeader(http.StatusAccepted)
}

// bearer returns the bearer token of r, or "" when there is none.
func bearer(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
