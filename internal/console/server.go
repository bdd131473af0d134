// Package console serves the administration console: the static bundle,
// the endpoint configuration and a session API where every open page owns
// one search orchestrator whose state is pushed over a websocket.
package console

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/kafka"
	"schedadmin/internal/log"
	"schedadmin/internal/scheduler"
	"schedadmin/internal/search"
)

// webFiles will be injected from main package
var webFiles embed.FS

// SetWebFiles sets the embedded web files
func SetWebFiles(files embed.FS) {
	webFiles = files
}

var errNoRoute = errors.New("no such route")

// Config holds the console server settings.
type Config struct {
	Port           int
	DistDir        string
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	Location       *time.Location
}

// Option configures a ConsoleServer.
type Option func(*ConsoleServer)

// WithValueDecoder renders schedule payloads with vd.
func WithValueDecoder(vd *scheduler.ValueDecoder) Option {
	return func(cs *ConsoleServer) { cs.values = vd }
}

// WithInspector inspects scheduler topics with in.
func WithInspector(in *kafka.Inspector) Option {
	return func(cs *ConsoleServer) { cs.inspector = in }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(cs *ConsoleServer) { cs.logger = l }
}

// ConsoleServer serves the console and its API.
type ConsoleServer struct {
	cfg       Config
	router    *mux.Router
	handler   http.Handler
	server    *http.Server
	upgrader  websocket.Upgrader
	client    *scheduler.Client
	lister    *scheduler.Lister
	values    *scheduler.ValueDecoder
	inspector *kafka.Inspector
	logger    log.Logger
	bundle    string

	sessionsMutex sync.RWMutex
	sessions      map[string]*session

	storesMutex sync.Mutex
	stores      map[string]*clientStore

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConsoleServer creates a console bound to client.
func NewConsoleServer(cfg Config, client *scheduler.Client, opts ...Option) *ConsoleServer {
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	cs := &ConsoleServer{
		cfg:    cfg,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		client:   client,
		lister:   scheduler.NewLister(client),
		logger:   log.Global(),
		sessions: make(map[string]*session),
		stores:   make(map[string]*clientStore),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(cs)
	}
	if cs.values == nil {
		cs.values = scheduler.NewValueDecoder(cs.logger)
	}
	if cs.inspector == nil {
		cs.inspector = kafka.NewInspector(nil, cs.logger)
	}

	cs.setupRoutes()
	cs.handler = cors.AllowAll().Handler(cs.router)
	return cs
}

// Handler returns the full HTTP handler, CORS included.
func (cs *ConsoleServer) Handler() http.Handler {
	return cs.handler
}

// setupRoutes configures HTTP routes
func (cs *ConsoleServer) setupRoutes() {
	cs.router.HandleFunc("/configuration.json", cs.handleConfiguration).Methods("GET")

	api := cs.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/schedulers", cs.handleSchedulers).Methods("GET")
	api.HandleFunc("/schedulers/{name}/topics", cs.handleTopics).Methods("GET")
	api.HandleFunc("/stats", cs.handleStats).Methods("GET")
	api.HandleFunc("/{kind}/scheduler/{name}/schedule/{id}", cs.handleDetail).Methods("GET")

	api.HandleFunc("/sessions", cs.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", cs.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", cs.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/actions", cs.handleActions).Methods("POST")
	api.HandleFunc("/sessions/{id}/sort", cs.handleSort).Methods("POST")
	api.HandleFunc("/sessions/{id}/refresh", cs.handleRefresh).Methods("POST")

	cs.router.HandleFunc("/ws/sessions/{id}", cs.handleWebSocket)

	spa, source := newSPAHandler(cs.cfg.DistDir)
	cs.bundle = source
	cs.router.PathPrefix("/").Handler(spa)
}

// Start serves until Stop is called.
func (cs *ConsoleServer) Start(ctx context.Context) error {
	cs.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cs.cfg.Port),
		Handler:           cs.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go cs.sweepLoop(ctx)
	go func() {
		if err := cs.lister.Refresh(ctx); err != nil {
			cs.logger.Warn("initial scheduler listing failed", "error", err)
		}
	}()

	cs.logger.Info("console server starting", "addr", fmt.Sprintf("http://localhost:%d", cs.cfg.Port), "bundle", cs.bundle)
	err := cs.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes every session and gracefully shuts down the server.
func (cs *ConsoleServer) Stop(ctx context.Context) error {
	cs.cancel()

	cs.sessionsMutex.Lock()
	for id, s := range cs.sessions {
		s.close()
		delete(cs.sessions, id)
	}
	cs.sessionsMutex.Unlock()

	if cs.server != nil {
		return cs.server.Shutdown(ctx)
	}
	return nil
}

// sweepLoop drops sessions idle for longer than the session TTL.
func (cs *ConsoleServer) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cs.ctx.Done():
			return
		case now := <-ticker.C:
			cs.sweep(now)
		}
	}
}

// sweep drops idle sessions, then the criteria stores of browsers that have
// no session left and have not been seen for a session TTL. It returns the
// number of sessions dropped.
func (cs *ConsoleServer) sweep(now time.Time) int {
	cs.sessionsMutex.Lock()
	defer cs.sessionsMutex.Unlock()
	removed := 0
	active := make(map[string]bool, len(cs.sessions))
	for id, s := range cs.sessions {
		if s.idleSince(now) > cs.cfg.SessionTTL {
			s.close()
			delete(cs.sessions, id)
			removed++
			continue
		}
		active[s.browser] = true
	}

	cs.storesMutex.Lock()
	expired := 0
	for id, st := range cs.stores {
		switch {
		case active[id]:
			st.lastUsed = now
		case now.Sub(st.lastUsed) > cs.cfg.SessionTTL:
			delete(cs.stores, id)
			expired++
		}
	}
	cs.storesMutex.Unlock()

	if removed > 0 || expired > 0 {
		cs.logger.Debug("expired console state", "sessions", removed, "stores", expired)
	}
	return removed
}

// handleConfiguration serves the resolved endpoint document.
func (cs *ConsoleServer) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cs.client.Endpoints().Document())
}

// handleSchedulers returns the scheduler list; ?refresh=true fetches it again.
func (cs *ConsoleServer) handleSchedulers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" || len(cs.lister.State().Schedulers) == 0 {
		_ = cs.lister.Refresh(r.Context())
	}
	st := cs.lister.State()
	if st.Err != nil && len(st.Schedulers) == 0 {
		writeError(w, statusFor(st.Err), st.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schedulers": st.Schedulers})
}

func (cs *ConsoleServer) handleTopics(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s, ok := scheduler.FindScheduler(cs.lister.State().Schedulers, name)
	if !ok {
		_ = cs.lister.Refresh(r.Context())
		if s, ok = scheduler.FindScheduler(cs.lister.State().Schedulers, name); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("scheduler %s: %w", name, scheduler.ErrNotFound))
			return
		}
	}
	report, err := cs.inspector.Inspect(r.Context(), s)
	if err != nil {
		cs.logger.Error("topic inspection failed", "scheduler", name, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (cs *ConsoleServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := cs.client.Stats(r.Context())
	if err != nil {
		cs.logger.Error("stats failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// detailVersion is a schedule version with its payload rendered as text.
type detailVersion struct {
	scheduler.Schedule
	Payload string `json:"payload"`
}

func (cs *ConsoleServer) handleDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := endpoints.ParseKind(vars["kind"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	versions, err := cs.client.Detail(r.Context(), kind, vars["name"], vars["id"])
	if err != nil {
		if !errors.Is(err, scheduler.ErrNotFound) {
			cs.logger.Error("schedule detail failed", "kind", kind, "scheduler", vars["name"], "id", vars["id"], "error", err)
		}
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]detailVersion, 0, len(versions))
	for _, v := range versions {
		out = append(out, detailVersion{Schedule: v, Payload: cs.values.Decode(r.Context(), v.Value)})
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrBadResponse), errors.Is(err, scheduler.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, endpoints.ErrMissingKey):
		return http.StatusNotImplemented
	case errors.Is(err, search.ErrUnknownActionKind), errors.Is(err, endpoints.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
