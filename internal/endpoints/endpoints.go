// Package endpoints resolves the scheduler admin API locations once, before
// any API call, into an immutable value.
package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

var (
	// ErrMissingKey is returned when the configuration document lacks a required key.
	ErrMissingKey = errors.New("endpoints: missing configuration key")
	// ErrUnknownKind is returned for a schedule kind that has no endpoint.
	ErrUnknownKind = errors.New("endpoints: unknown schedule kind")
)

// Kind selects one of the three schedule sources exposed by the API.
type Kind string

const (
	KindAll     Kind = "all"
	KindLive    Kind = "live"
	KindHistory Kind = "history"
)

// Kinds lists every schedule source in display order.
var Kinds = []Kind{KindLive, KindAll, KindHistory}

// ParseKind accepts the kind names used on the command line and in URLs.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindAll, "":
		return KindAll, nil
	case KindLive:
		return KindLive, nil
	case KindHistory:
		return KindHistory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Document is the wire form of configuration.json.
type Document struct {
	APIRoot               string `json:"api-root"`
	Schedulers            string `json:"schedulers"`
	Schedules             string `json:"schedules"`
	LiveSchedules         string `json:"live-schedules"`
	HistorySchedules      string `json:"history-schedules"`
	ScheduleDetail        string `json:"schedule-detail"`
	LiveScheduleDetail    string `json:"live-schedule-detail"`
	HistoryScheduleDetail string `json:"history-schedule-detail"`
	Stats                 string `json:"stats"`
}

// DefaultDocument matches the routes of the scheduler admin REST server.
func DefaultDocument(apiRoot string) Document {
	return Document{
		APIRoot:               apiRoot,
		Schedulers:            "/schedulers",
		Schedules:             "/scheduler/{name}/schedules",
		LiveSchedules:         "/live/scheduler/{name}/schedules",
		HistorySchedules:      "/history/scheduler/{name}/schedules",
		ScheduleDetail:        "/scheduler/{name}/schedule/{id}",
		LiveScheduleDetail:    "/live/scheduler/{name}/schedule/{id}",
		HistoryScheduleDetail: "/history/scheduler/{name}/schedule/{id}",
		Stats:                 "/stats",
	}
}

func (d Document) validate() error {
	required := []struct {
		key, value string
	}{
		{"api-root", d.APIRoot},
		{"schedulers", d.Schedulers},
		{"schedules", d.Schedules},
		{"live-schedules", d.LiveSchedules},
		{"schedule-detail", d.ScheduleDetail},
		{"live-schedule-detail", d.LiveScheduleDetail},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingKey, r.key)
		}
	}
	return nil
}

// Endpoints is the resolved, read-only set of API URLs.
type Endpoints struct {
	doc Document
}

// New validates doc and freezes it. History and stats keys are optional:
// older scheduler admin servers did not expose them.
func New(doc Document) (*Endpoints, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	doc.APIRoot = strings.TrimRight(doc.APIRoot, "/")
	return &Endpoints{doc: doc}, nil
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Endpoints, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to decode configuration document: %w", err)
	}
	return New(doc)
}

// Load reads a configuration document from disk.
func Load(path string) (*Endpoints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	return Parse(data)
}

// Resolve fetches the configuration document from url.
func Resolve(ctx context.Context, client *http.Client, url string) (*Endpoints, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch configuration from %s: %w", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("configuration request to %s returned status %d", url, resp.StatusCode)
	}
	return Parse(body)
}

// Open resolves source either as an http(s) URL or as a file path.
func Open(ctx context.Context, client *http.Client, source string) (*Endpoints, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return Resolve(ctx, client, source)
	}
	return Load(source)
}

// Document returns a copy of the resolved document, as served back to browsers.
func (e *Endpoints) Document() Document {
	return e.doc
}

// APIRoot returns the API root without trailing slash.
func (e *Endpoints) APIRoot() string {
	return e.doc.APIRoot
}

// Schedulers returns the scheduler topology URL.
func (e *Endpoints) Schedulers() string {
	return e.doc.APIRoot + e.doc.Schedulers
}

// Stats returns the per-scheduler counters URL.
func (e *Endpoints) Stats() (string, error) {
	if e.doc.Stats == "" {
		return "", fmt.Errorf("%w: stats", ErrMissingKey)
	}
	return e.doc.APIRoot + e.doc.Stats, nil
}

// Schedules returns the search URL of kind for schedulerName.
func (e *Endpoints) Schedules(kind Kind, schedulerName string) (string, error) {
	var tmpl string
	switch kind {
	case KindAll:
		tmpl = e.doc.Schedules
	case KindLive:
		tmpl = e.doc.LiveSchedules
	case KindHistory:
		tmpl = e.doc.HistorySchedules
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if tmpl == "" {
		return "", fmt.Errorf("%w: %s-schedules", ErrMissingKey, kind)
	}
	return e.doc.APIRoot + expand(tmpl, schedulerName, ""), nil
}

// ScheduleDetail returns the detail URL of kind for one schedule id.
func (e *Endpoints) ScheduleDetail(kind Kind, schedulerName, id string) (string, error) {
	var tmpl string
	switch kind {
	case KindAll:
		tmpl = e.doc.ScheduleDetail
	case KindLive:
		tmpl = e.doc.LiveScheduleDetail
	case KindHistory:
		tmpl = e.doc.HistoryScheduleDetail
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if tmpl == "" {
		return "", fmt.Errorf("%w: %s-schedule-detail", ErrMissingKey, kind)
	}
	return e.doc.APIRoot + expand(tmpl, schedulerName, id), nil
}

func expand(tmpl, name, id string) string {
	r := strings.NewReplacer("{name}", url.PathEscape(name), "{id}", url.PathEscape(id))
	return r.Replace(tmpl)
}
