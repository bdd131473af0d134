package search

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedadmin/internal/scheduler"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fullModel() Model {
	return Model{
		Scheduler:  &scheduler.Scheduler{Name: "sched-A"},
		ScheduleID: "abc",
		EpochFrom:  day(2024, 1, 1),
		EpochTo:    day(2024, 1, 2),
		Sort:       scheduler.SortByEpoch,
		SortOrder:  scheduler.Asc,
		Max:        50,
	}
}

func TestReduce_ReplacesOnlyNamedField(t *testing.T) {
	r := Reducer{}
	other := &scheduler.Scheduler{Name: "sched-B"}
	tests := []struct {
		name   string
		action Action
		want   func(m Model) Model
	}{
		{"scheduler", SchedulerChanged{Scheduler: other}, func(m Model) Model { m.Scheduler = other; return m }},
		{"schedule id", ScheduleIDChanged{ScheduleID: "xyz"}, func(m Model) Model { m.ScheduleID = "xyz"; return m }},
		{"epoch from", EpochFromChanged{At: day(2023, 5, 1)}, func(m Model) Model { m.EpochFrom = day(2023, 5, 1); return m }},
		{"epoch to", EpochToChanged{At: day(2023, 6, 1)}, func(m Model) Model { m.EpochTo = day(2023, 6, 1); return m }},
		{"clear epoch to", EpochToChanged{}, func(m Model) Model { m.EpochTo = time.Time{}; return m }},
		{"sort", SortChanged{Sort: scheduler.SortByID}, func(m Model) Model { m.Sort = scheduler.SortByID; return m }},
		{"sort order", SortOrderChanged{Order: scheduler.Desc}, func(m Model) Model { m.SortOrder = scheduler.Desc; return m }},
		{"max", MaxChanged{Max: 10}, func(m Model) Model { m.Max = 10; return m }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := fullModel()
			got := r.Reduce(before, tt.action)
			assert.Equal(t, tt.want(fullModel()), got)
			assert.Equal(t, fullModel(), before, "input state must not change")
		})
	}
}

func TestReduce_Sequence(t *testing.T) {
	r := Reducer{}
	actions := []Action{
		ScheduleIDChanged{ScheduleID: "1"},
		MaxChanged{Max: 5},
		ScheduleIDChanged{ScheduleID: "2"},
		SortChanged{Sort: scheduler.SortByTimestamp},
	}
	m := fullModel()
	for _, a := range actions {
		m = r.Reduce(m, a)
	}
	want := fullModel()
	want.ScheduleID = "2"
	want.Max = 5
	want.Sort = scheduler.SortByTimestamp
	assert.Equal(t, want, m)
}

func TestReduce_InitMergesSetFields(t *testing.T) {
	r := Reducer{}
	got := r.Reduce(fullModel(), Init{Partial: Model{ScheduleID: "new", Max: 7}})
	want := fullModel()
	want.ScheduleID = "new"
	want.Max = 7
	assert.Equal(t, want, got)

	assert.Equal(t, fullModel(), r.Reduce(Model{}, Init{Partial: fullModel()}))
}

func TestReduce_Normalization(t *testing.T) {
	at := time.Date(2024, 1, 2, 13, 45, 10, 0, time.UTC)

	r := DefaultReducer()
	m := r.Reduce(Model{}, EpochToChanged{At: at})
	assert.Equal(t, int64(1704239999), m.EpochTo.Unix())
	m = r.Reduce(m, EpochFromChanged{At: at})
	assert.Equal(t, at, m.EpochFrom)

	start := Reducer{From: NormalizeStartOfDay, To: NormalizeNone}
	m = start.Reduce(Model{}, EpochFromChanged{At: at})
	assert.Equal(t, day(2024, 1, 2), m.EpochFrom)
	m = start.Reduce(m, EpochToChanged{At: at})
	assert.Equal(t, at, m.EpochTo)

	m = r.Reduce(Model{}, Init{Partial: Model{EpochTo: day(2024, 1, 2)}})
	assert.Equal(t, int64(1704239999), m.EpochTo.Unix())
}

func TestParseNormalization(t *testing.T) {
	for _, n := range []Normalization{NormalizeNone, NormalizeStartOfDay, NormalizeEndOfDay} {
		got, err := ParseNormalization(n.String())
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	_, err := ParseNormalization("noon")
	assert.Error(t, err)
}

func TestReduce_UnknownActionPanics(t *testing.T) {
	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrUnknownActionKind))
	}()
	DefaultReducer().Reduce(Model{}, nil)
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Action
	}{
		{"scheduler object", `{"type":"scheduler-changed","payload":{"name":"sched-A","instances":[]}}`,
			SchedulerChanged{Scheduler: &scheduler.Scheduler{Name: "sched-A", Instances: []scheduler.Instance{}}}},
		{"scheduler name", `{"type":"scheduler-changed","payload":"sched-A"}`,
			SchedulerChanged{Scheduler: &scheduler.Scheduler{Name: "sched-A"}}},
		{"scheduler cleared", `{"type":"scheduler-changed","payload":null}`, SchedulerChanged{}},
		{"schedule id", `{"type":"scheduleId-changed","payload":"abc"}`, ScheduleIDChanged{ScheduleID: "abc"}},
		{"epoch from date", `{"type":"epochFrom-changed","payload":"2024-01-01"}`, EpochFromChanged{At: day(2024, 1, 1)}},
		{"epoch from seconds", `{"type":"epochFrom-changed","payload":1704067200}`, EpochFromChanged{At: time.Unix(1704067200, 0).In(time.UTC)}},
		{"epoch to rfc3339", `{"type":"epochTo-changed","payload":"2024-01-02T00:00:00Z"}`, EpochToChanged{At: day(2024, 1, 2)}},
		{"epoch to cleared", `{"type":"epochTo-changed","payload":null}`, EpochToChanged{}},
		{"sort", `{"type":"sort-changed","payload":"timestamp"}`, SortChanged{Sort: scheduler.SortByTimestamp}},
		{"sort order", `{"type":"sortOrder-changed","payload":"desc"}`, SortOrderChanged{Order: scheduler.Desc}},
		{"max", `{"type":"max-changed","payload":25}`, MaxChanged{Max: 25}},
		{"init", `{"type":"init","payload":{"schedulerName":"sched-A","scheduleId":"x","epochTo":"2024-01-02","max":9}}`,
			Init{Partial: Model{Scheduler: &scheduler.Scheduler{Name: "sched-A"}, ScheduleID: "x", EpochTo: day(2024, 1, 2), Max: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.json), time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	_, err := DecodeAction([]byte(`{"type":"reset"}`), time.UTC)
	assert.ErrorIs(t, err, ErrUnknownActionKind)

	for _, bad := range []string{
		`not json`,
		`{"type":"max-changed","payload":-1}`,
		`{"type":"sort-changed","payload":"name"}`,
		`{"type":"epochFrom-changed","payload":"01/02/2024"}`,
		`{"type":"scheduleId-changed","payload":12}`,
	} {
		_, err := DecodeAction([]byte(bad), time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestToggleSort(t *testing.T) {
	r := DefaultReducer()
	apply := func(m Model, column scheduler.SortType) Model {
		actions, err := ToggleSort(m, column)
		require.NoError(t, err)
		for _, a := range actions {
			m = r.Reduce(m, a)
		}
		return m
	}

	m := apply(Model{}, scheduler.SortByEpoch)
	assert.Equal(t, scheduler.SortByEpoch, m.Sort)
	assert.Equal(t, scheduler.Asc, m.SortOrder)

	m = apply(m, scheduler.SortByEpoch)
	assert.Equal(t, scheduler.Desc, m.SortOrder)

	m = apply(m, scheduler.SortByID)
	assert.Equal(t, scheduler.SortByID, m.Sort)
	assert.Equal(t, scheduler.Asc, m.SortOrder)

	_, err := ToggleSort(m, "")
	assert.Error(t, err)
}
