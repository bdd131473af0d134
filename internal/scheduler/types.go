package scheduler

import (
	"time"
)

// Scheduler is a named group of scheduler instances. Name is its identity key.
type Scheduler struct {
	Name      string     `json:"name"`
	Instances []Instance `json:"instances"`
	HTTPPort  string     `json:"http_port"`
}

// Instance is one running scheduler process. Only this shape is supported;
// the older {id, names, partitions, bootstrapServers} shape is rejected when
// decoding.
type Instance struct {
	IP               string   `json:"ip"`
	Hostnames        []string `json:"hostname"`
	BootstrapServers string   `json:"bootstrap_servers"`
	Topics           []string `json:"topics"`
	HistoryTopic     string   `json:"history_topic,omitempty"`
}

// Name returns the first hostname, or the ip when the instance has none.
func (i Instance) Name() string {
	if len(i.Hostnames) > 0 {
		return i.Hostnames[0]
	}
	return i.IP
}

// Topics returns the distinct topics served by every instance of s.
func (s Scheduler) Topics() []string {
	seen := make(map[string]bool)
	var topics []string
	for _, inst := range s.Instances {
		for _, t := range inst.Topics {
			if !seen[t] {
				seen[t] = true
				topics = append(topics, t)
			}
		}
	}
	return topics
}

// BootstrapServers returns the bootstrap servers of the first instance.
func (s Scheduler) BootstrapServers() string {
	if len(s.Instances) > 0 {
		return s.Instances[0].BootstrapServers
	}
	return ""
}

// FindScheduler returns the scheduler called name.
func FindScheduler(list []Scheduler, name string) (Scheduler, bool) {
	for _, s := range list {
		if s.Name == name {
			return s, true
		}
	}
	return Scheduler{}, false
}

// ScheduleInfo is the summary of a schedule shown in result tables.
type ScheduleInfo struct {
	ID          string `json:"id"`
	Scheduler   string `json:"scheduler"`
	Timestamp   int64  `json:"timestamp"` // creation time, unix seconds
	Epoch       int64  `json:"epoch"`     // trigger time, unix seconds
	TargetTopic string `json:"targetTopic"`
	TargetID    string `json:"targetId"`
}

// CreatedAt returns the creation time.
func (s ScheduleInfo) CreatedAt() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// TriggerAt returns the time at which the message is (or was) sent.
func (s ScheduleInfo) TriggerAt() time.Time {
	return time.Unix(s.Epoch, 0)
}

// Schedule is one version of a scheduled message with its payload.
type Schedule struct {
	ScheduleInfo
	Topic string `json:"topic"`
	Value string `json:"value"` // base64
}

// SearchResult is the mapped search envelope.
type SearchResult struct {
	Found     int        `json:"found"`
	Schedules []Schedule `json:"schedules"`
}

// Limited reports whether the server matched more schedules than it returned.
func (r *SearchResult) Limited() bool {
	return r != nil && len(r.Schedules) < r.Found
}

// AppStat holds the counters of one scheduler.
type AppStat struct {
	Scheduler    string `json:"scheduler"`
	TotalLive    int    `json:"total_live"`
	Total        int    `json:"total"`
	TotalHistory int    `json:"total_history"`
}
