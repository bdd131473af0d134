package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"schedadmin/internal/endpoints"
	"schedadmin/internal/kafka"
	"schedadmin/internal/scheduler"
)

//go:embed files
var templatesFS embed.FS

// SchedulersData feeds schedulers.tmpl.
type SchedulersData struct {
	Schedulers []scheduler.Scheduler
	Reports    map[string]*kafka.Report // topic inspection by scheduler name, optional
}

// SchedulesData feeds schedules.tmpl.
type SchedulesData struct {
	Kind      endpoints.Kind
	Summary   string
	Label     string
	Schedules []scheduler.Schedule
}

// DetailVersion is one version of a schedule with its rendered payload.
type DetailVersion struct {
	scheduler.Schedule
	Payload string
}

// DetailData feeds detail.tmpl.
type DetailData struct {
	Kind      endpoints.Kind
	Scheduler string
	ID        string
	Versions  []DetailVersion
}

// StatsData feeds stats.tmpl.
type StatsData struct {
	Stats []scheduler.AppStat
}

// Totals sums the counters of every scheduler.
func (d StatsData) Totals() scheduler.AppStat {
	t := scheduler.AppStat{Scheduler: "TOTAL"}
	for _, s := range d.Stats {
		t.TotalLive += s.TotalLive
		t.Total += s.Total
		t.TotalHistory += s.TotalHistory
	}
	return t
}

// Manager renders the command line views. Templates use tab separated
// columns which are aligned after execution.
type Manager struct {
	templates map[string]*template.Template
}

// NewManager parses the embedded templates. Dates are shown in loc (local
// time when nil).
func NewManager(loc *time.Location) (*Manager, error) {
	if loc == nil {
		loc = time.Local
	}
	m := &Manager{
		templates: make(map[string]*template.Template),
	}

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"date": func(unix int64) string {
			if unix == 0 {
				return "-"
			}
			return time.Unix(unix, 0).In(loc).Format("2006-01-02 15:04:05")
		},
		"join": strings.Join,
		"orDash": func(s string) string {
			if s == "" {
				return "-"
			}
			return s
		},
	}

	templatePaths := []struct {
		name string
		path string
	}{
		{"schedulers", "files/schedulers.tmpl"},
		{"schedules", "files/schedules.tmpl"},
		{"detail", "files/detail.tmpl"},
		{"stats", "files/stats.tmpl"},
	}

	for _, tp := range templatePaths {
		content, err := templatesFS.ReadFile(tp.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", tp.name, err)
		}

		tmpl, err := template.New(tp.name).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", tp.name, err)
		}

		m.templates[tp.name] = tmpl
	}

	return m, nil
}

// RenderSchedulers renders the scheduler topology.
func (m *Manager) RenderSchedulers(data SchedulersData) (string, error) {
	return m.render("schedulers", data)
}

// RenderSchedules renders a search result table.
func (m *Manager) RenderSchedules(data SchedulesData) (string, error) {
	return m.render("schedules", data)
}

// RenderDetail renders the version history of a schedule.
func (m *Manager) RenderDetail(data DetailData) (string, error) {
	return m.render("detail", data)
}

// RenderStats renders the per-scheduler counters.
func (m *Manager) RenderStats(data StatsData) (string, error) {
	return m.render("stats", data)
}

// render executes a template with the given data
func (m *Manager) render(templateName string, data interface{}) (string, error) {
	tmpl, exists := m.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if err := tmpl.Execute(tw, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	if err := tw.Flush(); err != nil {
		return "", fmt.Errorf("failed to align template %s: %w", templateName, err)
	}

	return buf.String(), nil
}
