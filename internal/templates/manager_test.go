package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/kafka"
	"schedadmin/internal/scheduler"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(time.UTC)
	require.NoError(t, err)
	return manager
}

func TestNewManager(t *testing.T) {
	t.Run("create new manager", func(t *testing.T) {
		manager, err := NewManager(nil)
		assert.NoError(t, err)
		assert.NotNil(t, manager)
		assert.Len(t, manager.templates, 4)
	})
}

func TestManager_RenderSchedulers(t *testing.T) {
	manager := newManager(t)
	data := SchedulersData{
		Schedulers: []scheduler.Scheduler{{
			Name:     "sched-A",
			HTTPPort: "8080",
			Instances: []scheduler.Instance{
				{IP: "10.0.0.1", Hostnames: []string{"node-1", "node-1.local"}, BootstrapServers: "kafka:9092", Topics: []string{"schedules"}, HistoryTopic: "history"},
			},
		}},
		Reports: map[string]*kafka.Report{
			"sched-A": {Scheduler: "sched-A", Topics: []kafka.TopicInfo{{Name: "schedules", Role: kafka.RoleSchedules, Exists: true, Partitions: 3, ReplicationFactor: 2}}},
		},
	}

	result, err := manager.RenderSchedulers(data)
	require.NoError(t, err)
	assert.Contains(t, result, "Scheduler sched-A (http port 8080)")
	assert.Contains(t, result, "node-1,node-1.local")
	assert.Contains(t, result, "kafka:9092")
	assert.Contains(t, result, "UNDER-REPLICATED")
	assert.Regexp(t, `schedules\s+schedules\s+true\s+3\s+2\s+0`, result)

	t.Run("without reports", func(t *testing.T) {
		data.Reports = nil
		result, err := manager.RenderSchedulers(data)
		require.NoError(t, err)
		assert.NotContains(t, result, "PARTITIONS")
	})
	t.Run("empty", func(t *testing.T) {
		result, err := manager.RenderSchedulers(SchedulersData{})
		require.NoError(t, err)
		assert.Contains(t, result, "No scheduler registered.")
	})
}

func TestManager_RenderSchedules(t *testing.T) {
	manager := newManager(t)
	data := SchedulesData{
		Kind:    endpoints.KindLive,
		Summary: `Search: scheduler "sched-A"`,
		Label:   "10 result(s) (limited result 1)",
		Schedules: []scheduler.Schedule{{ScheduleInfo: scheduler.ScheduleInfo{
			ID: "abc-1", Scheduler: "sched-A", Timestamp: 1704067200, Epoch: 1704153600, TargetTopic: "orders", TargetID: "k1",
		}}},
	}

	result, err := manager.RenderSchedules(data)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(result), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `Search: scheduler "sched-A" [live]`, lines[0])
	assert.Equal(t, "10 result(s) (limited result 1)", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "#"))
	assert.Regexp(t, `^1\s+abc-1\s+sched-A\s+2024-01-01 00:00:00\s+2024-01-02 00:00:00\s+orders\s+k1$`, lines[3])

	data.Schedules = nil
	data.Label = "no schedule found"
	result, err = manager.RenderSchedules(data)
	require.NoError(t, err)
	assert.NotContains(t, result, "TARGET TOPIC")
}

func TestManager_RenderDetail(t *testing.T) {
	manager := newManager(t)
	v := scheduler.Schedule{ScheduleInfo: scheduler.ScheduleInfo{ID: "abc-1", Epoch: 1704153600, Timestamp: 1704067200, TargetTopic: "orders"}, Topic: "sched"}
	result, err := manager.RenderDetail(DetailData{
		Kind:      endpoints.KindHistory,
		Scheduler: "sched-A",
		ID:        "abc-1",
		Versions:  []DetailVersion{{Schedule: v, Payload: "héllo"}, {Schedule: v}},
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Schedule abc-1 on sched-A [history], 2 version(s)")
	assert.Contains(t, result, "Version 2")
	assert.Regexp(t, `Value:\s+héllo`, result)
	assert.Regexp(t, `Target key:\s+-`, result)
	assert.Regexp(t, `Trigger:\s+2024-01-02 00:00:00`, result)
}

func TestManager_RenderStats(t *testing.T) {
	manager := newManager(t)
	data := StatsData{Stats: []scheduler.AppStat{
		{Scheduler: "a", TotalLive: 1, Total: 3, TotalHistory: 2},
		{Scheduler: "b", TotalLive: 4, Total: 10, TotalHistory: 6},
	}}
	assert.Equal(t, scheduler.AppStat{Scheduler: "TOTAL", TotalLive: 5, Total: 13, TotalHistory: 8}, data.Totals())

	result, err := manager.RenderStats(data)
	require.NoError(t, err)
	assert.Regexp(t, `TOTAL\s+5\s+13\s+8`, result)

	single, err := manager.RenderStats(StatsData{Stats: data.Stats[:1]})
	require.NoError(t, err)
	assert.NotContains(t, single, "TOTAL")
}

func TestManager_UnknownTemplate(t *testing.T) {
	manager := newManager(t)
	_, err := manager.render("missing", nil)
	assert.Error(t, err)
}
