package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedadmin/internal/log"
	"schedadmin/internal/scheduler"
)

type fakeConn struct {
	partitions []kafka.Partition
	err        error
	closed     bool
}

func (f *fakeConn) ReadPartitions(...string) ([]kafka.Partition, error) { return f.partitions, f.err }
func (f *fakeConn) Close() error                                         { f.closed = true; return nil }

func broker(id int) kafka.Broker {
	return kafka.Broker{Host: "kafka-" + string(rune('0'+id)), Port: 9092, ID: id}
}

func partition(topic string, id int, replicas, isr []kafka.Broker) kafka.Partition {
	return kafka.Partition{Topic: topic, ID: id, Leader: replicas[0], Replicas: replicas, Isr: isr}
}

var schedA = scheduler.Scheduler{
	Name: "sched-A",
	Instances: []scheduler.Instance{
		{IP: "10.0.0.1", BootstrapServers: "bad:9092, kafka-1:9092", Topics: []string{"schedules"}, HistoryTopic: "schedules-history"},
		{IP: "10.0.0.2", BootstrapServers: "kafka-1:9092", Topics: []string{"schedules", "delayed"}, HistoryTopic: "schedules-history"},
	},
}

func TestInspect(t *testing.T) {
	b1, b2 := broker(1), broker(2)
	conn := &fakeConn{partitions: []kafka.Partition{
		partition("schedules", 0, []kafka.Broker{b1, b2}, []kafka.Broker{b1, b2}),
		partition("schedules", 1, []kafka.Broker{b2, b1}, []kafka.Broker{b2}),
		partition("schedules-history", 0, []kafka.Broker{b1}, []kafka.Broker{b1}),
		partition("unrelated", 0, []kafka.Broker{b1}, []kafka.Broker{b1}),
	}}
	var dialed []string
	dial := func(_ context.Context, addr string) (MetadataConn, error) {
		dialed = append(dialed, addr)
		if addr == "bad:9092" {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	report, err := NewInspector(dial, log.Nop{}).Inspect(context.Background(), schedA)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad:9092", "kafka-1:9092"}, dialed)
	assert.True(t, conn.closed)

	assert.Equal(t, "sched-A", report.Scheduler)
	assert.Equal(t, 2, report.Brokers)
	require.Len(t, report.Topics, 3)

	schedules := report.Topics[0]
	assert.Equal(t, "schedules", schedules.Name)
	assert.Equal(t, RoleSchedules, schedules.Role)
	assert.True(t, schedules.Exists)
	assert.Equal(t, 2, schedules.Partitions)
	assert.Equal(t, 2, schedules.ReplicationFactor)
	assert.Equal(t, 1, schedules.UnderReplicated)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, schedules.Leaders)

	assert.Equal(t, "delayed", report.Topics[1].Name)
	assert.False(t, report.Topics[1].Exists)

	history := report.Topics[2]
	assert.Equal(t, RoleHistory, history.Role)
	assert.Equal(t, 1, history.Partitions)

	assert.Equal(t, []string{"delayed"}, report.Missing())
}

func TestInspect_Errors(t *testing.T) {
	_, err := NewInspector(nil, log.Nop{}).Inspect(context.Background(), scheduler.Scheduler{Name: "empty"})
	assert.Error(t, err)

	down := func(context.Context, string) (MetadataConn, error) { return nil, errors.New("refused") }
	_, err = NewInspector(down, log.Nop{}).Inspect(context.Background(), schedA)
	assert.ErrorContains(t, err, "refused")

	failing := &fakeConn{err: errors.New("metadata timeout")}
	dial := func(context.Context, string) (MetadataConn, error) { return failing, nil }
	_, err = NewInspector(dial, log.Nop{}).Inspect(context.Background(), schedA)
	assert.ErrorContains(t, err, "metadata timeout")
	assert.True(t, failing.closed)
}
