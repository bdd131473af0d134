package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedadmin/internal/endpoints"
	logpkg "schedadmin/internal/log"
	"schedadmin/internal/scheduler"
	"schedadmin/internal/search"
)

type recordingAPI struct {
	mu      sync.Mutex
	queries []string
}

func (a *recordingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/schedulers":
		_, _ = w.Write([]byte(`{"schedulers":[{"name":"sched-A","instances":[]},{"name":"sched-B","instances":[]}]}`))
	case strings.HasSuffix(r.URL.Path, "/schedules"):
		a.mu.Lock()
		a.queries = append(a.queries, r.URL.Path+"?"+r.URL.RawQuery)
		a.mu.Unlock()
		_, _ = w.Write([]byte(`{"found":3,"schedules":[{"scheduler":"sched-B","schedule":{"id":"abc-1","epoch":1704100000,"timestamp":1704000000,"topic":"sched","target-topic":"orders","target-key":"k1","value":""}}]}`))
	default:
		http.NotFound(w, r)
	}
}

func (a *recordingAPI) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queries) == 0 {
		return ""
	}
	return a.queries[len(a.queries)-1]
}

func newTestClient(t *testing.T, h http.Handler) *scheduler.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	ep, err := endpoints.New(endpoints.DefaultDocument(srv.URL))
	require.NoError(t, err)
	c, err := scheduler.NewClient(ep, scheduler.WithLogger(logpkg.Nop{}))
	require.NoError(t, err)
	return c
}

func TestExecuteSearch(t *testing.T) {
	logpkg.SetGlobal(logpkg.Nop{})
	api := &recordingAPI{}
	client := newTestClient(t, api)
	store := search.NewMemoryStore()

	opts := searchOptions{
		scheduler: "sched-B",
		id:        "abc",
		from:      "2024-01-01",
		to:        "2024-01-02",
		sort:      "epoch",
		order:     "desc",
		max:       10,
		fromBound: "none",
		toBound:   "end-of-day",
	}
	var out bytes.Buffer
	err := executeSearch(context.Background(), &out, client, store, endpoints.KindLive, opts, time.UTC)
	require.NoError(t, err)

	q := api.last()
	assert.True(t, strings.HasPrefix(q, "/live/scheduler/sched-B/schedules?"), q)
	assert.Contains(t, q, "epoch-from=1704067200")
	assert.Contains(t, q, "epoch-to=1704239999")
	assert.Contains(t, q, "schedule-id=abc")
	assert.Contains(t, q, "max=10")
	assert.Contains(t, q, "sort-by=epoch+desc")

	assert.Contains(t, out.String(), `Search: scheduler "sched-B"`)
	assert.Contains(t, out.String(), "3 result(s) (limited result 1)")
	assert.Contains(t, out.String(), "abc-1")

	name, ok := store.Get(search.ScopeLive, search.FieldSchedulerName)
	assert.True(t, ok)
	assert.Equal(t, "sched-B", name)
}

func TestExecuteSearchRemembersCriteria(t *testing.T) {
	logpkg.SetGlobal(logpkg.Nop{})
	api := &recordingAPI{}
	client := newTestClient(t, api)
	store := search.NewMemoryStore()
	defaults := searchOptions{fromBound: "none", toBound: "end-of-day"}

	first := defaults
	first.scheduler, first.id = "sched-B", "xyz"
	require.NoError(t, executeSearch(context.Background(), &bytes.Buffer{}, client, store, endpoints.KindHistory, first, time.UTC))

	require.NoError(t, executeSearch(context.Background(), &bytes.Buffer{}, client, store, endpoints.KindHistory, defaults, time.UTC))
	assert.True(t, strings.HasPrefix(api.last(), "/history/scheduler/sched-B/schedules?"))
	assert.Contains(t, api.last(), "schedule-id=xyz")

	// other kinds keep their own criteria
	require.NoError(t, executeSearch(context.Background(), &bytes.Buffer{}, client, store, endpoints.KindAll, defaults, time.UTC))
	assert.True(t, strings.HasPrefix(api.last(), "/scheduler/sched-A/schedules?"))
	assert.NotContains(t, api.last(), "schedule-id")
}

func TestExecuteSearchErrors(t *testing.T) {
	logpkg.SetGlobal(logpkg.Nop{})
	client := newTestClient(t, &recordingAPI{})
	base := searchOptions{fromBound: "none", toBound: "end-of-day"}

	tests := []struct {
		name   string
		mutate func(*searchOptions)
		errMsg string
	}{
		{"unknown scheduler", func(o *searchOptions) { o.scheduler = "nope" }, "unknown scheduler"},
		{"bad date", func(o *searchOptions) { o.from = "01/02/2024" }, "invalid date"},
		{"bad sort", func(o *searchOptions) { o.sort = "size" }, "sort"},
		{"bad order", func(o *searchOptions) { o.order = "up" }, "order"},
		{"negative max", func(o *searchOptions) { o.max = -1 }, "--max"},
		{"bad bound", func(o *searchOptions) { o.toBound = "noon" }, "normalization"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			err := executeSearch(context.Background(), &bytes.Buffer{}, client, nil, endpoints.KindAll, opts, time.UTC)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefaultPort(t *testing.T) {
	t.Setenv("PORT", "")
	assert.Equal(t, 5000, defaultPort())
	t.Setenv("PORT", "8123")
	assert.Equal(t, 8123, defaultPort())
	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, 5000, defaultPort())
}
