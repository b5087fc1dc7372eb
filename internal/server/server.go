// Package server receives session tokens from the companion browser
// script. The browser performs the login itself and forwards only the
// derived token and session cookie, never the password.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/KidsLabDe/ScratchBackendCLI/pkg/auth"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/config"
	"github.com/KidsLabDe/ScratchBackendCLI/pkg/logger"
)

// Server is the local HTTP endpoint the browser script posts sessions to.
type Server struct {
	sessions      *auth.Manager
	logger        logger.Logger
	allowedOrigin string
	httpServer    *http.Server
}

// New creates a server storing received sessions through the manager.
func New(sessions *auth.Manager, cfg *config.Config, log logger.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		sessions:      sessions,
		logger:        log,
		allowedOrigin: cfg.Server.AllowedOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scratch-auth", s.handleReceive)
	mux.HandleFunc("GET /api/scratch-auth/status/{username}", s.handleStatus)
	mux.HandleFunc("POST /api/scratch-auth/logout/{username}", s.handleLogout)
	mux.HandleFunc("OPTIONS /api/", s.handlePreflight)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.withCORS(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("session receiver listening", map[string]interface{}{
			"addr": s.httpServer.Addr,
		})
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// receivePayload is what the browser script posts after logging in.
type receivePayload struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	var payload receivePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Username == "" || (payload.Token == "" && payload.SessionID == "") {
		s.writeError(w, http.StatusBadRequest, "username and token or sessionId required")
		return
	}

	session := &auth.Session{
		Username:     payload.Username,
		Token:        payload.Token,
		SessionID:    payload.SessionID,
		LastModified: time.Now(),
	}
	if err := s.sessions.Store(session); err != nil {
		s.logger.WithError(err).Error("storing received session failed")
		s.writeError(w, http.StatusInternalServerError, "could not store session")
		return
	}

	s.logger.InfoWithFields("session received", map[string]interface{}{
		"username": payload.Username,
	})
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"username": payload.Username,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	session, err := s.sessions.Retrieve(username)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"username":      username,
			"authenticated": false,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"username":      session.Username,
		"authenticated": true,
		"lastModified":  session.LastModified.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	if err := s.sessions.Delete(username); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "no session for user")
			return
		}
		s.logger.WithError(err).Error("deleting session failed")
		s.writeError(w, http.StatusInternalServerError, "could not delete session")
		return
	}

	s.logger.InfoWithFields("session removed", map[string]interface{}{
		"username": username,
	})
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"username": username,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("encoding response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
