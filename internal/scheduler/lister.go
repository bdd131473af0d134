package scheduler

import (
	"context"
	"sync"
)

// SchedulerSource fetches the scheduler topology. *Client implements it.
type SchedulerSource interface {
	ListSchedulers(ctx context.Context) ([]Scheduler, error)
}

// ListState is a snapshot of a Lister.
type ListState struct {
	Schedulers []Scheduler `json:"schedulers"`
	IsLoading  bool        `json:"isLoading"`
	Err        error       `json:"-"`
}

// Lister holds the scheduler topology, fetched once per Refresh.
type Lister struct {
	source SchedulerSource

	mu    sync.RWMutex
	state ListState
}

// NewLister creates a lister with an empty list.
func NewLister(source SchedulerSource) *Lister {
	return &Lister{source: source, state: ListState{Schedulers: []Scheduler{}}}
}

// Refresh fetches the topology. On failure the previous list is kept.
func (l *Lister) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.state.IsLoading = true
	l.mu.Unlock()

	list, err := l.source.ListSchedulers(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.IsLoading = false
	l.state.Err = err
	if err == nil {
		if list == nil {
			list = []Scheduler{}
		}
		l.state.Schedulers = list
	}
	return err
}

// State returns the current snapshot. Schedulers is never nil.
func (l *Lister) State() ListState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.state
	s.Schedulers = append([]Scheduler{}, l.state.Schedulers...)
	return s
}
