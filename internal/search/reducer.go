package search

import (
	"fmt"
	"time"
)

// Normalization snaps a date before it is stored in the model.
type Normalization int

const (
	NormalizeNone Normalization = iota
	NormalizeStartOfDay
	NormalizeEndOfDay
)

// Apply normalizes t in its own location. The zero time is left alone.
func (n Normalization) Apply(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	switch n {
	case NormalizeStartOfDay:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case NormalizeEndOfDay:
		return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
	default:
		return t
	}
}

func (n Normalization) String() string {
	switch n {
	case NormalizeNone:
		return "none"
	case NormalizeStartOfDay:
		return "start-of-day"
	case NormalizeEndOfDay:
		return "end-of-day"
	default:
		return fmt.Sprintf("normalization(%d)", int(n))
	}
}

// ParseNormalization reads none, start-of-day or end-of-day.
func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case "", "none":
		return NormalizeNone, nil
	case "start-of-day":
		return NormalizeStartOfDay, nil
	case "end-of-day":
		return NormalizeEndOfDay, nil
	default:
		return NormalizeNone, fmt.Errorf("unknown date normalization %q", s)
	}
}

// Reducer is the pure state transition function over Model. From and To
// are applied to the lower and upper date bounds whenever they are set.
type Reducer struct {
	From Normalization
	To   Normalization
}

// DefaultReducer keeps the lower bound as given and extends the upper bound
// to the end of its day, so a one-day range covers the whole day.
func DefaultReducer() Reducer {
	return Reducer{From: NormalizeNone, To: NormalizeEndOfDay}
}

// Reduce returns the next state. Each action replaces exactly the field it
// names; Init merges its non-zero fields. It panics with
// ErrUnknownActionKind on an action outside the closed set, which includes a
// nil action.
func (r Reducer) Reduce(state Model, a Action) Model {
	next := state
	switch a := a.(type) {
	case Init:
		p := a.Partial
		if p.Scheduler != nil {
			next.Scheduler = p.Scheduler
		}
		if p.ScheduleID != "" {
			next.ScheduleID = p.ScheduleID
		}
		if !p.EpochFrom.IsZero() {
			next.EpochFrom = r.From.Apply(p.EpochFrom)
		}
		if !p.EpochTo.IsZero() {
			next.EpochTo = r.To.Apply(p.EpochTo)
		}
		if p.Sort != "" {
			next.Sort = p.Sort
		}
		if p.SortOrder != "" {
			next.SortOrder = p.SortOrder
		}
		if p.Max != 0 {
			next.Max = p.Max
		}
	case SchedulerChanged:
		next.Scheduler = a.Scheduler
	case ScheduleIDChanged:
		next.ScheduleID = a.ScheduleID
	case EpochFromChanged:
		next.EpochFrom = r.From.Apply(a.At)
	case EpochToChanged:
		next.EpochTo = r.To.Apply(a.At)
	case SortChanged:
		next.Sort = a.Sort
	case SortOrderChanged:
		next.SortOrder = a.Order
	case MaxChanged:
		next.Max = a.Max
	default:
		panic(fmt.Errorf("%w: %T", ErrUnknownActionKind, a))
	}
	return next
}
