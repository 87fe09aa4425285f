package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sermonmux/internal/api"
	"sermonmux/internal/artifacts"
	"sermonmux/internal/config"
	"sermonmux/internal/logging"
	"sermonmux/internal/manifest"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/services"
)

const (
	maxRequestBytes  = 1 << 20
	defaultLogLimit  = 200
	followTimeout    = 25 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsFetchBatch     = 100
	defaultListLimit = 50
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	token  atomic.Value
	router chi.Router

	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	s := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setToken(cfg.Paths.APIToken)
	s.router = s.routes()
	return s
}

func (s *apiServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.currentToken))
		r.Get("/status", s.handleStatus)
		r.Post("/runs", s.handleStartRun)
		r.Post("/runs/cancel", s.handleCancel)
		r.Get("/artifacts", s.handleArtifacts)
		r.Get("/logs", s.handleLogs)
		r.Get("/logs/ws", s.handleLogsWS)
		r.Post("/notifications/test", s.handleTestNotification)
	})
	return r
}

func (s *apiServer) setToken(token string) {
	s.token.Store(strings.TrimSpace(token))
}

func (s *apiServer) currentToken() string {
	token, _ := s.token.Load().(string)
	return token
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "daemon", "listen", "paths.api_bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// requestID tags each request with a correlation ID that flows into logs.
func (s *apiServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		ConfigPath:   status.ConfigPath,
		StateDBPath:  status.StateDBPath,
		LockFilePath: status.LockFilePath,
		OutputDir:    status.OutputDir,
		Languages:    status.Languages,
		Run:          api.FromStatus(status.Run),
		Dependencies: api.FromDependencies(status.Dependencies),
	})
}

// handleStartRun accepts a manifest document (YAML or JSON). The mode query
// parameter selects upload_existing; processing is the default.
func (s *apiServer) handleStartRun(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)
	mode := strings.TrimSpace(r.URL.Query().Get("mode"))
	switch mode {
	case "", "process", "upload_existing":
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mode %q", mode))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	doc := &manifest.Manifest{}
	if len(bytes.TrimSpace(body)) > 0 || mode != "upload_existing" {
		doc, err = manifest.Decode(bytes.NewReader(body))
		if err != nil {
			s.writeError(w, statusForError(err), err)
			return
		}
	}
	req, err := doc.Request(logger)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}

	manager := s.daemon.manager
	kind := artifacts.RunProcess
	var runID string
	if mode == string(artifacts.RunUploadExisting) {
		kind = artifacts.RunUploadExisting
		runID, err = manager.UploadExisting(context.WithoutCancel(r.Context()), req)
	} else {
		runID, err = manager.Start(context.WithoutCancel(r.Context()), req)
	}
	if err != nil {
		logger.Info("run request rejected",
			logging.String(logging.FieldEventType, "run_rejected"),
			logging.String("mode", mode),
			logging.Error(err),
		)
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.RunStartResponse{RunID: runID, Kind: string(kind)})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, _ *http.Request) {
	cancelled := s.daemon.manager.Cancel()
	status := http.StatusAccepted
	if !cancelled {
		status = http.StatusOK
	}
	s.writeJSON(w, status, api.CancelResponse{
		Cancelled: cancelled,
		Run:       api.FromStatus(s.daemon.manager.Status()),
	})
}

func (s *apiServer) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	resp := api.ArtifactsResponse{Runs: []api.Run{}, Artifacts: []api.Artifact{}, Uploads: []api.Upload{}}
	store := s.daemon.store
	if store == nil {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}
	limit := defaultListLimit
	if value, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && value > 0 {
		limit = value
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))

	runs, err := store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	records, err := store.ListArtifacts(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	uploads, err := store.ListUploads(r.Context(), runID, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp.Runs = api.FromRuns(runs)
	resp.Artifacts = api.FromArtifacts(records)
	resp.Uploads = api.FromUploads(uploads)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.hub
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []api.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	follow := queryBool(query.Get("follow"))
	tail := queryBool(query.Get("tail"))
	filter := newLogFilter(query)

	var (
		raw     []logging.LogEvent
		next    uint64
		dropped uint64
	)
	if tail && since == 0 && !follow {
		raw, next = hub.Tail(limit)
	} else {
		if first := hub.FirstSequence(); first > since+1 {
			dropped = first - since - 1
		}
		ctx := r.Context()
		if follow {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, followTimeout)
			defer cancel()
		}
		var err error
		raw, next, err = hub.Fetch(ctx, since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	events := make([]api.LogEvent, 0, len(raw))
	for _, evt := range raw {
		if filter.match(evt) {
			events = append(events, api.FromLogEvent(evt))
		}
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: events, Next: next, Dropped: dropped})
}

// handleLogsWS streams log events as JSON messages until the client leaves.
func (s *apiServer) handleLogsWS(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.hub
	if hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("log stream unavailable"))
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	filter := newLogFilter(query)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		events, next, err := hub.Fetch(ctx, since, wsFetchBatch, true)
		if err != nil {
			return
		}
		since = next
		for _, evt := range events {
			if !filter.match(evt) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(api.FromLogEvent(evt)); err != nil {
				return
			}
		}
	}
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("%s: %w", message, err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sent": sent, "message": message})
}

type logFilter struct {
	component string
	runID     string
	language  string
}

func newLogFilter(query map[string][]string) logFilter {
	get := func(key string) string {
		if values := query[key]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
		return ""
	}
	return logFilter{
		component: get("component"),
		runID:     get("run_id"),
		language:  get("language"),
	}
}

func (f logFilter) match(evt logging.LogEvent) bool {
	if f.component != "" && !strings.EqualFold(f.component, evt.Component) {
		return false
	}
	if f.runID != "" && f.runID != evt.RunID {
		return false
	}
	if f.language != "" && !strings.EqualFold(f.language, evt.Language) {
		return false
	}
	return true
}

func queryBool(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
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

func (s *apiServer) writeError(w http.ResponseWriter, status int, err error) {
	resp := api.ErrorResponse{Error: err.Error()}
	if status >= http.StatusInternalServerError || status == http.StatusBadRequest {
		resp.ErrorClass = services.Classify(err)
	}
	s.writeJSON(w, status, resp)
}
