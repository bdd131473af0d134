package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/scheduler"
	"schedadmin/internal/search"
)

// clientCookie identifies a browser; its persisted criteria live in a
// per-browser store.
const clientCookie = "schedadmin_client"

var errUnknownSession = errors.New("unknown session")

// StateView is the JSON form of an orchestrator snapshot pushed to pages.
type StateView struct {
	Session       string               `json:"session"`
	Kind          endpoints.Kind       `json:"kind"`
	SchedulerName string               `json:"schedulerName,omitempty"`
	ScheduleID    string               `json:"scheduleId,omitempty"`
	EpochFrom     string               `json:"epochFrom,omitempty"`
	EpochTo       string               `json:"epochTo,omitempty"`
	Sort          scheduler.SortType   `json:"sort,omitempty"`
	SortOrder     scheduler.SortOrder  `json:"sortOrder,omitempty"`
	Max           int                  `json:"max,omitempty"`
	Query         string               `json:"query"`
	Summary       string               `json:"summary"`
	IsLoading     bool                 `json:"isLoading"`
	Error         string               `json:"error,omitempty"`
	View          search.View          `json:"view"`
	Label         string               `json:"label"`
	Found         int                  `json:"found"`
	Schedules     []scheduler.Schedule `json:"schedules"`
	Version       uint64               `json:"version"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan StateView
}

// session is one open search page.
type session struct {
	id       string
	kind     endpoints.Kind
	browser  string
	orch     *search.Orchestrator
	location *search.MemoryLocation
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
	clients  map[*wsClient]bool
	closed   bool
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) > 0 {
		return 0
	}
	return now.Sub(s.lastSeen)
}

func (s *session) view(st search.State) StateView {
	m := st.Model
	v := StateView{
		Session:       s.id,
		Kind:          st.Kind,
		SchedulerName: m.SchedulerName(),
		ScheduleID:    m.ScheduleID,
		Sort:          m.Sort,
		SortOrder:     m.SortOrder,
		Max:           m.Max,
		Query:         s.location.Query().Encode(),
		Summary:       m.Summary(),
		IsLoading:     st.IsLoading,
		View:          st.View(),
		Label:         st.Label(),
		Schedules:     []scheduler.Schedule{},
		Version:       st.Version,
	}
	if !m.EpochFrom.IsZero() {
		v.EpochFrom = m.EpochFrom.Format(search.DateLayout)
	}
	if !m.EpochTo.IsZero() {
		v.EpochTo = m.EpochTo.Format(search.DateLayout)
	}
	if st.Err != nil {
		v.Error = st.Err.Error()
	}
	if st.Result != nil {
		v.Found = st.Result.Found
		if st.Result.Schedules != nil {
			v.Schedules = st.Result.Schedules
		}
	}
	return v
}

// broadcast queues v for every websocket of the session. Slow clients miss
// intermediate snapshots; each carries a version so pages keep the newest.
func (s *session) broadcast(v StateView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- v:
		default:
		}
	}
}

// attach registers c and queues first as its opening snapshot.
func (s *session) attach(c *wsClient, first StateView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = true
	c.send <- first
	return true
}

func (s *session) detach(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
	s.lastSeen = time.Now()
}

func (s *session) close() {
	s.cancel()
	s.orch.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

// createSessionRequest opens a page of kind. Query is the page address
// query string (schedulerName, scheduleId, epochFrom, epochTo).
type createSessionRequest struct {
	Kind  string `json:"kind"`
	Query string `json:"query"`
}

// clientStore holds the remembered criteria of one browser.
type clientStore struct {
	*search.MemoryStore
	lastUsed time.Time
}

// storeFor returns the criteria store of the requesting browser and its
// client id, issuing the cookie on first contact.
func (cs *ConsoleServer) storeFor(w http.ResponseWriter, r *http.Request) (*search.MemoryStore, string) {
	id := ""
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{Name: clientCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	}
	cs.storesMutex.Lock()
	defer cs.storesMutex.Unlock()
	st, ok := cs.stores[id]
	if !ok {
		st = &clientStore{MemoryStore: search.NewMemoryStore()}
		cs.stores[id] = st
	}
	st.lastUsed = time.Now()
	return st.MemoryStore, id
}

func (cs *ConsoleServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid session request: %w", err))
			return
		}
	}
	kind, err := endpoints.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	query, err := url.ParseQuery(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid page query: %w", err))
		return
	}

	store, browser := cs.storeFor(w, r)
	seeded, err := search.Seed(search.SeedSource{
		Query:    query,
		Store:    store,
		Scope:    search.ScopeOf(kind),
		Location: cs.cfg.Location,
	})
	if err != nil {
		cs.logger.Warn("failed to clear persisted criteria", "error", err)
	}

	s := cs.newSession(kind, browser, query, store)
	cs.sessionsMutex.Lock()
	cs.sessions[s.id] = s
	cs.sessionsMutex.Unlock()

	if len(cs.lister.State().Schedulers) == 0 {
		_ = cs.lister.Refresh(r.Context())
	}
	list := cs.lister.State().Schedulers
	seeded.Scheduler = pickScheduler(list, seeded.SchedulerName())
	s.orch.Dispatch(s.ctx, search.Init{Partial: seeded})
	st := s.orch.SchedulersLoaded(s.ctx, list)

	cs.logger.Info("console session opened", "session", s.id, "kind", kind)
	writeJSON(w, http.StatusCreated, s.view(st))
}

// pickScheduler returns the listed scheduler called name, the first listed
// one when name is unknown, or a bare named scheduler while none are known.
func pickScheduler(list []scheduler.Scheduler, name string) *scheduler.Scheduler {
	if s, ok := scheduler.FindScheduler(list, name); ok {
		return &s
	}
	if len(list) > 0 {
		first := list[0]
		return &first
	}
	if name == "" {
		return nil
	}
	return &scheduler.Scheduler{Name: name}
}

func (cs *ConsoleServer) newSession(kind endpoints.Kind, browser string, query url.Values, store search.Store) *session {
	ctx, cancel := context.WithCancel(cs.ctx)
	id := uuid.NewString()
	location := search.NewMemoryLocation(query)
	opts := []search.Option{
		search.WithLocation(location),
		search.WithStore(store),
		search.WithLogger(cs.logger.With("session", id)),
	}
	if cs.cfg.RequestTimeout > 0 {
		opts = append(opts, search.WithRequestTimeout(cs.cfg.RequestTimeout))
	}
	s := &session{
		id:       id,
		kind:     kind,
		browser:  browser,
		orch:     search.NewOrchestrator(kind, cs.client, opts...),
		location: location,
		ctx:      ctx,
		cancel:   cancel,
		lastSeen: time.Now(),
		clients:  make(map[*wsClient]bool),
	}
	s.orch.Subscribe(func(st search.State) {
		s.broadcast(s.view(st))
	})
	return s
}

func (cs *ConsoleServer) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := mux.Vars(r)["id"]
	cs.sessionsMutex.RLock()
	s, ok := cs.sessions[id]
	cs.sessionsMutex.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownSession, id))
		return nil, false
	}
	s.touch()
	return s, true
}

func (cs *ConsoleServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s, ok := cs.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, s.view(s.orch.State()))
	}
}

func (cs *ConsoleServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := cs.lookup(w, r)
	if !ok {
		return
	}
	cs.sessionsMutex.Lock()
	delete(cs.sessions, s.id)
	cs.sessionsMutex.Unlock()
	s.close()
	w.WriteHeader(http.StatusNoContent)
}

// handleActions applies one action or an array of actions.
func (cs *ConsoleServer) handleActions(w http.ResponseWriter, r *http.Request) {
	s, ok := cs.lookup(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		raw = []json.RawMessage{body}
	}
	actions := make([]search.Action, 0, len(raw))
	for _, item := range raw {
		a, err := search.DecodeAction(item, cs.cfg.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		actions = append(actions, a)
	}
	writeJSON(w, http.StatusOK, s.view(s.orch.Dispatch(s.ctx, actions...)))
}

type sortRequest struct {
	Column string `json:"column"`
}

func (cs *ConsoleServer) handleSort(w http.ResponseWriter, r *http.Request) {
	s, ok := cs.lookup(w, r)
	if !ok {
		return
	}
	var req sortRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid sort request: %w", err))
		return
	}
	column, err := scheduler.ParseSortType(req.Column)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := s.orch.Sort(s.ctx, column)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(st))
}

func (cs *ConsoleServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s, ok := cs.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, s.view(s.orch.Refresh(s.ctx)))
	}
}

// handleWebSocket streams the session state until the page goes away.
func (cs *ConsoleServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := cs.lookup(w, r)
	if !ok {
		return
	}
	conn, err := cs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cs.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := &wsClient{conn: conn, send: make(chan StateView, 16)}
	if !s.attach(client, s.view(s.orch.State())) {
		return
	}
	go cs.writeLoop(client)

	cs.logger.Debug("websocket client connected", "session", s.id)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.detach(client)
			cs.logger.Debug("websocket client disconnected", "session", s.id)
			return
		}
	}
}

func (cs *ConsoleServer) writeLoop(c *wsClient) {
	for v := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(v); err != nil {
			cs.logger.Debug("websocket write failed", "error", err)
			c.conn.Close()
			return
		}
	}
}
