package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"schedadmin/internal/scheduler"
)

// ErrUnknownActionKind is raised for an action outside the closed set.
var ErrUnknownActionKind = errors.New("unknown action kind")

// Action is one of the reducer actions declared in this package. The set is
// closed: only this package can implement it.
type Action interface {
	Kind() string
	action()
}

// Init merges the non-zero fields of Partial over the state.
type Init struct{ Partial Model }

// SchedulerChanged selects a scheduler.
type SchedulerChanged struct{ Scheduler *scheduler.Scheduler }

// ScheduleIDChanged sets the id substring.
type ScheduleIDChanged struct{ ScheduleID string }

// EpochFromChanged sets the lower date bound. A zero time clears it.
type EpochFromChanged struct{ At time.Time }

// EpochToChanged sets the upper date bound. A zero time clears it.
type EpochToChanged struct{ At time.Time }

// SortChanged sets the sort column.
type SortChanged struct{ Sort scheduler.SortType }

// SortOrderChanged sets the sort direction.
type SortOrderChanged struct{ Order scheduler.SortOrder }

// MaxChanged sets the result limit.
type MaxChanged struct{ Max int }

func (Init) Kind() string              { return "init" }
func (SchedulerChanged) Kind() string  { return "scheduler-changed" }
func (ScheduleIDChanged) Kind() string { return "scheduleId-changed" }
func (EpochFromChanged) Kind() string  { return "epochFrom-changed" }
func (EpochToChanged) Kind() string    { return "epochTo-changed" }
func (SortChanged) Kind() string       { return "sort-changed" }
func (SortOrderChanged) Kind() string  { return "sortOrder-changed" }
func (MaxChanged) Kind() string        { return "max-changed" }

func (Init) action()              {}
func (SchedulerChanged) action()  {}
func (ScheduleIDChanged) action() {}
func (EpochFromChanged) action()  {}
func (EpochToChanged) action()    {}
func (SortChanged) action()       {}
func (SortOrderChanged) action()  {}
func (MaxChanged) action()        {}

// wireAction is the JSON form `{"type": "...", "payload": ...}`.
type wireAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wireInit struct {
	SchedulerName string `json:"schedulerName"`
	ScheduleID    string `json:"scheduleId"`
	EpochFrom     string `json:"epochFrom"`
	EpochTo       string `json:"epochTo"`
	Sort          string `json:"sort"`
	SortOrder     string `json:"sortOrder"`
	Max           int    `json:"max"`
}

// DecodeAction parses an action sent by a browser page. Dates are accepted
// as DateLayout, RFC 3339 or unix seconds, interpreted in loc. Scheduler
// payloads carry at least a name and are resolved by the orchestrator.
func DecodeAction(data []byte, loc *time.Location) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unable to decode action: %w", err)
	}
	payload := w.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	switch w.Type {
	case "init":
		var p wireInit
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("invalid init payload: %w", err)
		}
		return decodeInit(p, loc)
	case "scheduler-changed":
		var s *scheduler.Scheduler
		if err := json.Unmarshal(payload, &s); err != nil {
			var name string
			if nerr := json.Unmarshal(payload, &name); nerr != nil {
				return nil, fmt.Errorf("invalid scheduler payload: %w", err)
			}
			s = &scheduler.Scheduler{Name: name}
		}
		if s != nil && s.Name == "" {
			s = nil
		}
		return SchedulerChanged{Scheduler: s}, nil
	case "scheduleId-changed":
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return nil, fmt.Errorf("invalid schedule id payload: %w", err)
		}
		return ScheduleIDChanged{ScheduleID: id}, nil
	case "epochFrom-changed":
		t, err := decodeTime(payload, loc)
		if err != nil {
			return nil, err
		}
		return EpochFromChanged{At: t}, nil
	case "epochTo-changed":
		t, err := decodeTime(payload, loc)
		if err != nil {
			return nil, err
		}
		return EpochToChanged{At: t}, nil
	case "sort-changed":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("invalid sort payload: %w", err)
		}
		st, err := scheduler.ParseSortType(s)
		if err != nil {
			return nil, err
		}
		return SortChanged{Sort: st}, nil
	case "sortOrder-changed":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("invalid sort order payload: %w", err)
		}
		so, err := scheduler.ParseSortOrder(s)
		if err != nil {
			return nil, err
		}
		return SortOrderChanged{Order: so}, nil
	case "max-changed":
		var n int
		if err := json.Unmarshal(payload, &n); err != nil {
			return nil, fmt.Errorf("invalid max payload: %w", err)
		}
		if n < 0 {
			return nil, fmt.Errorf("max must not be negative, got %d", n)
		}
		return MaxChanged{Max: n}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionKind, w.Type)
	}
}

func decodeInit(p wireInit, loc *time.Location) (Action, error) {
	var m Model
	var err error
	if p.SchedulerName != "" {
		m.Scheduler = &scheduler.Scheduler{Name: p.SchedulerName}
	}
	m.ScheduleID = p.ScheduleID
	if m.EpochFrom, err = ParseDate(p.EpochFrom, loc); err != nil {
		return nil, err
	}
	if m.EpochTo, err = ParseDate(p.EpochTo, loc); err != nil {
		return nil, err
	}
	if m.Sort, err = scheduler.ParseSortType(p.Sort); err != nil {
		return nil, err
	}
	if m.SortOrder, err = scheduler.ParseSortOrder(p.SortOrder); err != nil {
		return nil, err
	}
	m.Max = p.Max
	return Init{Partial: m}, nil
}

func decodeTime(payload json.RawMessage, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "null" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).In(orLocal(loc)), nil
	}
	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		return time.Time{}, fmt.Errorf("invalid date payload: %w", err)
	}
	return ParseDate(s, loc)
}

// ParseDate accepts DateLayout or RFC 3339. The empty string is the zero time.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(DateLayout, s, orLocal(loc)); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected %s or RFC 3339)", s, DateLayout)
	}
	return t.In(orLocal(loc)), nil
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
