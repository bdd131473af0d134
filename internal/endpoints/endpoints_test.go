package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresKeys(t *testing.T) {
	doc := DefaultDocument("http://api")
	doc.LiveSchedules = ""

	_, err := New(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), "live-schedules")
}

func TestEndpoints_Templates(t *testing.T) {
	ep, err := New(DefaultDocument("http://api/"))
	require.NoError(t, err)

	assert.Equal(t, "http://api/schedulers", ep.Schedulers())

	u, err := ep.Schedules(KindHistory, "sched-A")
	require.NoError(t, err)
	assert.Equal(t, "http://api/history/scheduler/sched-A/schedules", u)

	u, err = ep.ScheduleDetail(KindLive, "sched A", "id/1")
	require.NoError(t, err)
	assert.Equal(t, "http://api/live/scheduler/sched%20A/schedule/id%2F1", u)

	_, err = ep.Schedules(Kind("bogus"), "x")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEndpoints_OptionalKeys(t *testing.T) {
	doc := DefaultDocument("http://api")
	doc.HistorySchedules = ""
	doc.Stats = ""
	ep, err := New(doc)
	require.NoError(t, err)

	_, err = ep.Schedules(KindHistory, "a")
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = ep.Stats()
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestResolve(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/configuration.json" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(DefaultDocument("http://scheduler-admin:9000"))
	}))
	defer srv.Close()

	ep, err := Resolve(context.Background(), srv.Client(), srv.URL+"/configuration.json")
	require.NoError(t, err)
	assert.Equal(t, "http://scheduler-admin:9000", ep.APIRoot())
	assert.Equal(t, 1, calls)

	_, err = Resolve(context.Background(), srv.Client(), srv.URL+"/missing.json")
	assert.Error(t, err)
}

func TestOpen_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configuration.json")
	data, err := json.Marshal(DefaultDocument("http://localhost:9000"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ep, err := Open(context.Background(), nil, path)
	require.NoError(t, err)
	stats, err := ep.Stats()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/stats", stats)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("LIVE")
	require.NoError(t, err)
	assert.Equal(t, KindLive, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAll, k)

	_, err = ParseKind("archive")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
