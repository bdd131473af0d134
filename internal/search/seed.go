package search

import (
	"net/url"
	"time"

	"schedadmin/internal/scheduler"
)

// SeedSource lists where an entering page takes its initial criteria from.
type SeedSource struct {
	Explicit Criteria   // values passed by the caller, highest priority
	Query    url.Values // page location query
	Store    Store
	Scope    Scope
	Defaults Model
	Location *time.Location
}

// Seed builds the initial model, field by field: explicit values, then the
// query, then the store, then the defaults. The scope is cleared from the
// store afterwards; the orchestrator writes it back on the next change.
// A bad date in the query is skipped rather than failing the page.
func Seed(src SeedSource) (Model, error) {
	var fromQuery Criteria
	if src.Query != nil {
		c, err := FromQuery(src.Query, src.Location)
		if err == nil {
			fromQuery = c
		} else {
			fromQuery = Criteria{
				SchedulerName: src.Query.Get(QuerySchedulerName),
				ScheduleID:    src.Query.Get(QueryScheduleID),
			}
		}
	}
	var stored Criteria
	if src.Store != nil {
		stored = LoadCriteria(src.Store, src.Scope, src.Location)
	}
	c := src.Explicit.Or(fromQuery).Or(stored)

	m := src.Defaults
	if c.SchedulerName != "" {
		m.Scheduler = &scheduler.Scheduler{Name: c.SchedulerName}
	}
	if c.ScheduleID != "" {
		m.ScheduleID = c.ScheduleID
	}
	if !c.EpochFrom.IsZero() {
		m.EpochFrom = c.EpochFrom
	}
	if !c.EpochTo.IsZero() {
		m.EpochTo = c.EpochTo
	}
	if src.Store != nil {
		if err := src.Store.Clear(src.Scope); err != nil {
			return m, err
		}
	}
	return m, nil
}
