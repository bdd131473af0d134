package search

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Query parameter names mirrored into the page location.
const (
	QuerySchedulerName = "schedulerName"
	QueryScheduleID    = "scheduleId"
	QueryEpochFrom     = "epochFrom"
	QueryEpochTo       = "epochTo"
)

// ToQuery encodes the set fields of c. Dates use DateLayout.
func ToQuery(c Criteria) url.Values {
	q := url.Values{}
	if c.SchedulerName != "" {
		q.Set(QuerySchedulerName, c.SchedulerName)
	}
	if c.ScheduleID != "" {
		q.Set(QueryScheduleID, c.ScheduleID)
	}
	if !c.EpochFrom.IsZero() {
		q.Set(QueryEpochFrom, c.EpochFrom.Format(DateLayout))
	}
	if !c.EpochTo.IsZero() {
		q.Set(QueryEpochTo, c.EpochTo.Format(DateLayout))
	}
	return q
}

// FromQuery decodes the criteria ToQuery produced. Unknown parameters are
// ignored.
func FromQuery(q url.Values, loc *time.Location) (Criteria, error) {
	c := Criteria{
		SchedulerName: q.Get(QuerySchedulerName),
		ScheduleID:    q.Get(QueryScheduleID),
	}
	var err error
	if c.EpochFrom, err = ParseDate(q.Get(QueryEpochFrom), loc); err != nil {
		return Criteria{}, fmt.Errorf("%s: %w", QueryEpochFrom, err)
	}
	if c.EpochTo, err = ParseDate(q.Get(QueryEpochTo), loc); err != nil {
		return Criteria{}, fmt.Errorf("%s: %w", QueryEpochTo, err)
	}
	return c, nil
}

// Location is the page address. Replace swaps its query without navigating.
type Location interface {
	Query() url.Values
	Replace(q url.Values)
}

// MemoryLocation is a Location held in memory.
type MemoryLocation struct {
	mu sync.Mutex
	q  url.Values
}

// NewMemoryLocation starts from q (may be nil).
func NewMemoryLocation(q url.Values) *MemoryLocation {
	return &MemoryLocation{q: cloneValues(q)}
}

func (l *MemoryLocation) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneValues(l.q)
}

func (l *MemoryLocation) Replace(q url.Values) {
	l.mu.Lock()
	l.q = cloneValues(q)
	l.mu.Unlock()
}

func cloneValues(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
