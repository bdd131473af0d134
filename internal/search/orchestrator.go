package search

import (
	"context"
	"sync"
	"time"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/log"
	"schedadmin/internal/scheduler"
)

// Searcher runs one search. *scheduler.Client implements it.
type Searcher interface {
	Search(ctx context.Context, kind endpoints.Kind, p scheduler.SearchParams) (*scheduler.SearchResult, error)
}

// State is a snapshot of an orchestrator.
type State struct {
	Kind      endpoints.Kind
	Model     Model
	IsLoading bool
	Err       error
	Result    *scheduler.SearchResult
	// Searched is set once a search has succeeded for the current scheduler.
	Searched bool
	// Version increases with every change; consumers drop older snapshots.
	Version uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReducer replaces DefaultReducer.
func WithReducer(r Reducer) Option {
	return func(o *Orchestrator) { o.reducer = r }
}

// WithLocation mirrors the criteria into loc.
func WithLocation(loc Location) Option {
	return func(o *Orchestrator) { o.location = loc }
}

// WithStore mirrors the criteria into s under the orchestrator's scope.
func WithStore(s Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRequestTimeout bounds each search so a hung request ends as an error.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// Orchestrator turns model changes into searches and keeps the location and
// store in step with the active criteria.
//
// Searches run asynchronously. Each carries a token; only the response to
// the latest token is applied, so an older response finishing last can
// never overwrite a newer one.
type Orchestrator struct {
	kind     endpoints.Kind
	searcher Searcher
	reducer  Reducer
	location Location
	store    Store
	logger   log.Logger
	timeout  time.Duration

	mu            sync.Mutex
	state         State
	schedulers    []scheduler.Scheduler
	lastKey       string
	lastScheduler string
	refresh       int
	lastRefresh   int
	token         uint64
	closed        bool
	subs          map[int]func(State)
	nextSub       int
	inflight      sync.WaitGroup
}

// NewOrchestrator creates an orchestrator for kind searches starting from
// the zero model. Use Dispatch with an Init action to seed it.
func NewOrchestrator(kind endpoints.Kind, searcher Searcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		kind:     kind,
		searcher: searcher,
		reducer:  DefaultReducer(),
		logger:   log.Global(),
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("scope", string(kind))
	o.state.Kind = kind
	return o
}

// Kind returns the schedule source searched.
func (o *Orchestrator) Kind() endpoints.Kind { return o.kind }

// State returns the current snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe registers fn for every new snapshot. fn runs outside the
// orchestrator lock and must not block for long.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Dispatch reduces actions in order, mirrors the resulting criteria and
// issues a search when the request differs from the previous one. ctx
// bounds the search it starts, so it should outlive the caller's request.
func (o *Orchestrator) Dispatch(ctx context.Context, actions ...Action) State {
	return o.update(ctx, func() {
		for _, a := range actions {
			o.state.Model = o.reducer.Reduce(o.state.Model, o.resolve(a))
		}
		o.mirror()
	})
}

// Refresh re-issues the current search even though the criteria are
// unchanged.
func (o *Orchestrator) Refresh(ctx context.Context) State {
	return o.update(ctx, func() { o.refresh++ })
}

// Sort applies a column click. The toggle is computed under the lock, so
// concurrent clicks on one column each flip the direction.
func (o *Orchestrator) Sort(ctx context.Context, column scheduler.SortType) (State, error) {
	if _, err := ToggleSort(Model{}, column); err != nil {
		return State{}, err
	}
	return o.update(ctx, func() {
		actions, _ := ToggleSort(o.state.Model, column)
		for _, a := range actions {
			o.state.Model = o.reducer.Reduce(o.state.Model, a)
		}
		o.mirror()
	}), nil
}

// SchedulersLoaded records the scheduler list. The model's scheduler is
// replaced by the listed scheduler of the same name, or by the first one
// when none is selected or the name is unknown.
func (o *Orchestrator) SchedulersLoaded(ctx context.Context, list []scheduler.Scheduler) State {
	o.mu.Lock()
	o.schedulers = append([]scheduler.Scheduler(nil), list...)
	current := o.state.Model.SchedulerName()
	o.mu.Unlock()

	if len(list) == 0 {
		return o.State()
	}
	if s, ok := scheduler.FindScheduler(list, current); ok {
		return o.Dispatch(ctx, SchedulerChanged{Scheduler: &s})
	}
	if current != "" {
		o.logger.Warn("selected scheduler is not listed, falling back to first", "scheduler", current)
	}
	first := list[0]
	return o.Dispatch(ctx, SchedulerChanged{Scheduler: &first})
}

// Wait blocks until every search started so far has completed.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Close drops subscribers and discards any response still in flight.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.token++
	o.subs = make(map[int]func(State))
	o.mu.Unlock()
}

func (o *Orchestrator) resolve(a Action) Action {
	sc, ok := a.(SchedulerChanged)
	if !ok || sc.Scheduler == nil {
		return a
	}
	if s, found := scheduler.FindScheduler(o.schedulers, sc.Scheduler.Name); found {
		return SchedulerChanged{Scheduler: &s}
	}
	return a
}

// update runs mutate under the lock, synchronizes and notifies.
func (o *Orchestrator) update(ctx context.Context, mutate func()) State {
	o.mu.Lock()
	if o.closed {
		s := o.state
		o.mu.Unlock()
		return s
	}
	unlocked := false
	defer func() {
		if !unlocked {
			o.mu.Unlock()
		}
	}()
	mutate()
	o.sync(ctx)
	o.state.Version++
	snapshot, subs := o.state, o.subscribers()
	o.mu.Unlock()
	unlocked = true

	notify(subs, snapshot)
	return snapshot
}

// sync decides whether to search. Must hold o.mu.
func (o *Orchestrator) sync(ctx context.Context) {
	params, ok := BuildParams(o.state.Model)
	if !ok {
		o.token++
		o.lastKey, o.lastScheduler = "", ""
		o.state.IsLoading = false
		o.state.Result = nil
		o.state.Err = nil
		o.state.Searched = false
		return
	}
	key := params.Key()
	if key == o.lastKey && o.refresh == o.lastRefresh {
		return
	}
	if params.SchedulerName != o.lastScheduler {
		o.state.Searched = false
		o.state.Result = nil
		o.state.Err = nil
	}
	o.lastKey, o.lastRefresh, o.lastScheduler = key, o.refresh, params.SchedulerName
	o.token++
	o.state.IsLoading = true
	o.inflight.Add(1)
	go o.run(ctx, o.token, params)
}

func (o *Orchestrator) run(ctx context.Context, token uint64, params scheduler.SearchParams) {
	defer o.inflight.Done()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	res, err := o.searcher.Search(ctx, o.kind, params)

	o.mu.Lock()
	if token != o.token {
		o.mu.Unlock()
		o.logger.Debug("discarding stale search response", "token", token)
		return
	}
	o.state.IsLoading = false
	if err != nil {
		o.state.Err = err
		o.logger.Error("search failed", "scheduler", params.SchedulerName, "error", err)
	} else {
		o.state.Err = nil
		o.state.Result = res
		o.state.Searched = true
		o.logger.Debug("search completed", "scheduler", params.SchedulerName, "found", res.Found, "shown", len(res.Schedules))
	}
	o.state.Version++
	snapshot, subs := o.state, o.subscribers()
	o.mu.Unlock()

	notify(subs, snapshot)
}

// mirror writes the criteria to the location and the store. Must hold o.mu.
func (o *Orchestrator) mirror() {
	c := o.state.Model.Criteria()
	if o.location != nil {
		o.location.Replace(ToQuery(c))
	}
	if o.store != nil {
		if err := SaveCriteria(o.store, ScopeOf(o.kind), c); err != nil {
			o.logger.Warn("failed to persist search criteria", "error", err)
		}
	}
}

func (o *Orchestrator) subscribers() []func(State) {
	subs := make([]func(State), 0, len(o.subs))
	for i := 0; i < o.nextSub; i++ {
		if fn, ok := o.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}
