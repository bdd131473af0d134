package scheduler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrBadResponse is returned for HTTP statuses >= 400.
	ErrBadResponse = errors.New("bad response from server")
	// ErrNotFound is returned when a detail lookup matches no record.
	ErrNotFound = errors.New("not found")
	// ErrMalformedResponse is returned when a payload does not match its schema.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNotInitialized is returned when the client has no resolved endpoints.
	ErrNotInitialized = errors.New("configuration is not initialized, endpoints must be resolved before any API call")
)

// RawSchedule is a schedule as the API serializes it.
type RawSchedule struct {
	ID          string `json:"id"`
	Epoch       int64  `json:"epoch"`
	Timestamp   int64  `json:"timestamp"`
	Topic       string `json:"topic"`
	TargetTopic string `json:"target-topic"`
	TargetKey   string `json:"target-key"`
	Value       string `json:"value"`
}

// ScheduleRecord wraps a schedule with the scheduler that owns it.
type ScheduleRecord struct {
	Scheduler string       `json:"scheduler"`
	Schedule  *RawSchedule `json:"schedule"`
}

type searchEnvelope struct {
	Found     *int             `json:"found"`
	Schedules []ScheduleRecord `json:"schedules"`
}

type schedulersEnvelope struct {
	Schedulers *[]Scheduler `json:"schedulers"`
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func unmarshal(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return malformed("empty body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func validateRecords(records []ScheduleRecord) error {
	for i, r := range records {
		if r.Schedule == nil {
			return malformed("record %d has no schedule", i)
		}
		if r.Schedule.ID == "" {
			return malformed("record %d has no schedule id", i)
		}
	}
	return nil
}

// decodeSearch decodes and validates a search envelope.
func decodeSearch(body []byte) (*SearchResult, error) {
	var env searchEnvelope
	if err := unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Found == nil {
		return nil, malformed("search envelope has no found counter")
	}
	if err := validateRecords(env.Schedules); err != nil {
		return nil, err
	}
	if len(env.Schedules) > *env.Found {
		return nil, malformed("search envelope returned %d schedules for found=%d", len(env.Schedules), *env.Found)
	}
	schedules := MakeScheduleInfoModel(env.Schedules)
	if schedules == nil {
		schedules = []Schedule{}
	}
	return &SearchResult{Found: *env.Found, Schedules: schedules}, nil
}

// decodeDetail decodes the version history of one schedule.
func decodeDetail(body []byte, schedulerName string) ([]Schedule, error) {
	var records []ScheduleRecord
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, ErrNotFound
	}
	if err := unmarshal(body, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	if err := validateRecords(records); err != nil {
		return nil, err
	}
	versions := make([]Schedule, 0, len(records))
	for _, r := range records {
		versions = append(versions, toSchedule(r.Schedule, schedulerName))
	}
	return versions, nil
}

// decodeSchedulers decodes and validates the scheduler topology.
func decodeSchedulers(body []byte) ([]Scheduler, error) {
	var env schedulersEnvelope
	if err := unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Schedulers == nil {
		return nil, malformed("scheduler envelope has no schedulers list")
	}
	for i, s := range *env.Schedulers {
		if s.Name == "" {
			return nil, malformed("scheduler %d has no name", i)
		}
		for j, inst := range s.Instances {
			if inst.IP == "" {
				return nil, malformed("instance %d of scheduler %s has no ip", j, s.Name)
			}
		}
	}
	return *env.Schedulers, nil
}

func decodeStats(body []byte) ([]AppStat, error) {
	var stats []AppStat
	if err := unmarshal(body, &stats); err != nil {
		return nil, err
	}
	for i, st := range stats {
		if st.Scheduler == "" {
			return nil, malformed("stat %d has no scheduler", i)
		}
	}
	return stats, nil
}

func toSchedule(raw *RawSchedule, schedulerName string) Schedule {
	return Schedule{
		ScheduleInfo: ScheduleInfo{
			ID:          raw.ID,
			Scheduler:   schedulerName,
			Timestamp:   raw.Timestamp,
			Epoch:       raw.Epoch,
			TargetTopic: raw.TargetTopic,
			TargetID:    raw.TargetKey,
		},
		Topic: raw.Topic,
		Value: raw.Value,
	}
}

// MakeScheduleInfoModel flattens wrapper records into schedules. A nil input
// is returned as nil and an empty one as empty. Records without a schedule
// object map to a schedule carrying only the scheduler name.
func MakeScheduleInfoModel(records []ScheduleRecord) []Schedule {
	if records == nil {
		return nil
	}
	out := make([]Schedule, 0, len(records))
	for _, r := range records {
		raw := r.Schedule
		if raw == nil {
			raw = &RawSchedule{}
		}
		out = append(out, toSchedule(raw, r.Scheduler))
	}
	return out
}
