// Package kafka inspects the Kafka topics a scheduler reads from and writes
// its history to.
package kafka

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/segmentio/kafka-go"

	"schedadmin/internal/log"
	"schedadmin/internal/scheduler"
)

// MetadataConn reads cluster metadata. *kafka.Conn implements it.
type MetadataConn interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// DialFunc opens a metadata connection to one broker.
type DialFunc func(ctx context.Context, addr string) (MetadataConn, error)

// DialTCP connects with the kafka-go default dialer.
func DialTCP(ctx context.Context, addr string) (MetadataConn, error) {
	conn, err := kafka.DefaultDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// TopicRole tells how a scheduler uses a topic.
type TopicRole string

const (
	RoleSchedules TopicRole = "schedules"
	RoleHistory   TopicRole = "history"
)

// TopicInfo describes one topic of a scheduler.
type TopicInfo struct {
	Name              string    `json:"name"`
	Role              TopicRole `json:"role"`
	Exists            bool      `json:"exists"`
	Partitions        int       `json:"partitions"`
	ReplicationFactor int       `json:"replication_factor"`
	UnderReplicated   int       `json:"under_replicated"`
	Leaders           []string  `json:"leaders,omitempty"`
}

// Report is the topic inspection of one scheduler.
type Report struct {
	Scheduler        string      `json:"scheduler"`
	BootstrapServers string      `json:"bootstrap_servers"`
	Brokers          int         `json:"brokers"`
	Topics           []TopicInfo `json:"topics"`
}

// Missing lists the topics the cluster does not know.
func (r *Report) Missing() []string {
	var missing []string
	for _, t := range r.Topics {
		if !t.Exists {
			missing = append(missing, t.Name)
		}
	}
	return missing
}

// Inspector reads topic metadata from a scheduler's Kafka cluster.
type Inspector struct {
	dial   DialFunc
	logger log.Logger
}

// NewInspector creates an inspector; a nil dial uses DialTCP.
func NewInspector(dial DialFunc, logger log.Logger) *Inspector {
	if dial == nil {
		dial = DialTCP
	}
	if logger == nil {
		logger = log.Global()
	}
	return &Inspector{dial: dial, logger: logger}
}

// Inspect reports the partitions and replication of every topic declared by
// the instances of s.
func (i *Inspector) Inspect(ctx context.Context, s scheduler.Scheduler) (*Report, error) {
	bootstrap := s.BootstrapServers()
	addrs := splitServers(bootstrap)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("scheduler %s has no bootstrap servers", s.Name)
	}

	var conn MetadataConn
	var err error
	for _, addr := range addrs {
		conn, err = i.dial(ctx, addr)
		if err == nil {
			break
		}
		i.logger.Warn("kafka broker unreachable", "scheduler", s.Name, "broker", addr, "error", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka for scheduler %s: %w", s.Name, err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, fmt.Errorf("failed to read partitions: %w", err)
	}
	return buildReport(s, bootstrap, partitions), nil
}

func buildReport(s scheduler.Scheduler, bootstrap string, partitions []kafka.Partition) *Report {
	byTopic := make(map[string][]kafka.Partition)
	brokers := make(map[string]bool)
	for _, p := range partitions {
		byTopic[p.Topic] = append(byTopic[p.Topic], p)
		for _, r := range p.Replicas {
			brokers[fmt.Sprintf("%s:%d", r.Host, r.Port)] = true
		}
	}

	report := &Report{Scheduler: s.Name, BootstrapServers: bootstrap, Brokers: len(brokers)}
	for _, want := range declaredTopics(s) {
		info := TopicInfo{Name: want.name, Role: want.role}
		parts, ok := byTopic[want.name]
		if ok {
			info.Exists = true
			info.Partitions = len(parts)
			leaders := make(map[string]bool)
			for _, p := range parts {
				if len(p.Replicas) > info.ReplicationFactor {
					info.ReplicationFactor = len(p.Replicas)
				}
				if len(p.Isr) < len(p.Replicas) {
					info.UnderReplicated++
				}
				leaders[fmt.Sprintf("%s:%d", p.Leader.Host, p.Leader.Port)] = true
			}
			for l := range leaders {
				info.Leaders = append(info.Leaders, l)
			}
			sort.Strings(info.Leaders)
		}
		report.Topics = append(report.Topics, info)
	}
	return report
}

type declared struct {
	name string
	role TopicRole
}

func declaredTopics(s scheduler.Scheduler) []declared {
	var out []declared
	seen := make(map[string]bool)
	for _, t := range s.Topics() {
		if !seen[t] {
			seen[t] = true
			out = append(out, declared{t, RoleSchedules})
		}
	}
	for _, inst := range s.Instances {
		if h := inst.HistoryTopic; h != "" && !seen[h] {
			seen[h] = true
			out = append(out, declared{h, RoleHistory})
		}
	}
	return out
}

func splitServers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
