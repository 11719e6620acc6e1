package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"playtime/internal/config"
	"playtime/internal/hltb"
	"playtime/internal/journal"
	"playtime/internal/logging"
	"playtime/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

type resolveResponse struct {
	StorefrontID int64            `json:"storefront_id"`
	Record       *hltb.GameRecord `json:"record,omitempty"`
	Miss         bool             `json:"miss"`
	FromCache    bool             `json:"from_cache"`
	Refreshing   bool             `json:"refreshing"`
	SearchedName string           `json:"searched_name,omitempty"`
}

type importRequest struct {
	UserID int64 `json:"user_id"`
}

type importResponse struct {
	Imported bool `json:"imported"`
}

type historyResponse struct {
	Records []journal.Record `json:"records"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Daemon.Bind)
	if bind == "" {
		return nil, errors.New("daemon bind address is required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/resolve/", srv.handleResolve)
	mux.HandleFunc("/api/import", srv.handleImport)
	mux.HandleFunc("/api/history", srv.handleHistory)
	mux.HandleFunc("/api/cache/clear", srv.handleCacheClear)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the listener address, useful when binding to port 0.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/resolve/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	storefrontID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || storefrontID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid storefront app id")
		return
	}

	outcome, err := s.daemon.Resolve(r.Context(), storefrontID)
	if err != nil {
		s.writeError(w, upstreamStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resolveResponse{
		StorefrontID: storefrontID,
		Record:       outcome.Record,
		Miss:         outcome.Record == nil,
		FromCache:    outcome.FromCache,
		Refreshing:   outcome.Refresh != nil,
		SearchedName: outcome.SearchedName,
	})
}

func (s *apiServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		s.writeError(w, http.StatusBadRequest, "user_id must be positive")
		return
	}
	imported, err := s.daemon.ImportLibrary(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, upstreamStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, importResponse{Imported: imported})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	var storefrontID int64
	if value := strings.TrimSpace(query.Get("app")); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid app filter")
			return
		}
		storefrontID = parsed
	}
	records, err := s.daemon.History(r.Context(), storefrontID, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse{Records: records})
}

func (s *apiServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.daemon.ClearCaches(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// upstreamStatus maps resolver errors onto HTTP statuses. Misses are not
// errors at the resolver level, so anything arriving here is operational.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrMalformed), errors.Is(err, services.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUpstream), errors.Is(err, services.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.logger.Debug("request rejected",
		logging.Int(logging.FieldStatus, status),
		logging.String("message", message))
	s.writeJSON(w, status, map[string]string{"error": message})
}
