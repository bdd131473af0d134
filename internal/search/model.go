// Package search holds the schedule search criteria, the reducer that
// mutates them, and the orchestrator that turns them into API searches.
package search

import (
	"fmt"
	"strings"
	"time"

	"schedadmin/internal/scheduler"
)

// DateLayout formats dates mirrored into query strings and stores.
const DateLayout = "2006-01-02"

// Model is the search form state.
type Model struct {
	Scheduler  *scheduler.Scheduler
	ScheduleID string
	EpochFrom  time.Time // zero when absent
	EpochTo    time.Time // zero when absent
	Sort       scheduler.SortType
	SortOrder  scheduler.SortOrder
	Max        int // zero when absent
}

// SchedulerName returns the selected scheduler name, or "".
func (m Model) SchedulerName() string {
	if m.Scheduler == nil {
		return ""
	}
	return m.Scheduler.Name
}

// Criteria returns the part of m that is mirrored into the location and
// the store.
func (m Model) Criteria() Criteria {
	return Criteria{
		SchedulerName: m.SchedulerName(),
		ScheduleID:    m.ScheduleID,
		EpochFrom:     m.EpochFrom,
		EpochTo:       m.EpochTo,
	}
}

// Summary describes the active criteria, e.g.
// `Search: scheduler "sched-A", schedule id "abc", start at "2024-01-01"`.
func (m Model) Summary() string {
	var parts []string
	if name := m.SchedulerName(); name != "" {
		parts = append(parts, fmt.Sprintf("scheduler %q", name))
	}
	if m.ScheduleID != "" {
		parts = append(parts, fmt.Sprintf("schedule id %q", m.ScheduleID))
	}
	if !m.EpochFrom.IsZero() {
		parts = append(parts, fmt.Sprintf("start at %q", m.EpochFrom.Format(DateLayout)))
	}
	if !m.EpochTo.IsZero() {
		parts = append(parts, fmt.Sprintf("end at %q", m.EpochTo.Format(DateLayout)))
	}
	if len(parts) == 0 {
		return "Search: all"
	}
	return "Search: " + strings.Join(parts, ", ")
}

// Criteria are the persisted search fields.
type Criteria struct {
	SchedulerName string
	ScheduleID    string
	EpochFrom     time.Time
	EpochTo       time.Time
}

// IsZero reports whether no field is set.
func (c Criteria) IsZero() bool {
	return c.SchedulerName == "" && c.ScheduleID == "" && c.EpochFrom.IsZero() && c.EpochTo.IsZero()
}

// Or fills every unset field of c from fallback.
func (c Criteria) Or(fallback Criteria) Criteria {
	if c.SchedulerName == "" {
		c.SchedulerName = fallback.SchedulerName
	}
	if c.ScheduleID == "" {
		c.ScheduleID = fallback.ScheduleID
	}
	if c.EpochFrom.IsZero() {
		c.EpochFrom = fallback.EpochFrom
	}
	if c.EpochTo.IsZero() {
		c.EpochTo = fallback.EpochTo
	}
	return c
}

// BuildParams converts m to request parameters. ok is false when no
// scheduler is selected, in which case no request must be issued. Epochs are
// truncated to whole seconds and Max defaults to scheduler.DefaultMax.
func BuildParams(m Model) (scheduler.SearchParams, bool) {
	name := m.SchedulerName()
	if name == "" {
		return scheduler.SearchParams{}, false
	}
	p := scheduler.SearchParams{
		SchedulerName: name,
		ScheduleID:    m.ScheduleID,
		Sort:          m.Sort,
		SortOrder:     m.SortOrder,
		Max:           m.Max,
	}
	if !m.EpochFrom.IsZero() {
		p.EpochFrom = m.EpochFrom.Unix()
	}
	if !m.EpochTo.IsZero() {
		p.EpochTo = m.EpochTo.Unix()
	}
	if p.Max <= 0 {
		p.Max = scheduler.DefaultMax
	}
	return p, true
}
