package diagnostics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myndhyve/relay-agent/internal/diagnostics"
)

func TestRunDoctor_FreshInstallReportsMissingConfig(t *testing.T) {
	dir := t.TempDir() + "/does-not-exist"
	r := diagnostics.RunDoctor(context.Background(), diagnostics.Options{ConfigDir: dir, CloudURL: ""})
	require.NotEmpty(t, r.Checks)
	assert.Equal(t, len(r.Checks), r.Passed+r.Failed)

	var byName = map[string]diagnostics.Check{}
	for _, c := range r.Checks {
		byName[c.Name] = c
	}
	assert.False(t, byName["config directory"].OK)
}

func TestRunDoctor_AllChecksRunIndependently(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := diagnostics.RunDoctor(context.Background(), diagnostics.Options{
		ConfigDir: dir, CloudURL: srv.URL, Version: "1.0.0", Now: time.Now,
	})
	assert.Len(t, r.Checks, 8)
	assert.Equal(t, "1.0.0", r.Version)

	var byName = map[string]diagnostics.Check{}
	for _, c := range r.Checks {
		byName[c.Name] = c
	}
	assert.True(t, byName["config directory"].OK)
	assert.True(t, byName["config file"].OK)
	assert.True(t, byName["credentials file"].OK)
	assert.True(t, byName["active project"].OK)
	assert.True(t, byName["cloud reachable"].OK)
}

func TestRunDoctor_CloudUnreachableOnNetworkFailure(t *testing.T) {
	dir := t.TempDir()
	r := diagnostics.RunDoctor(context.Background(), diagnostics.Options{
		ConfigDir: dir, CloudURL: "http://127.0.0.1:1",
	})
	var byName = map[string]diagnostics.Check{}
	for _, c := range r.Checks {
		byName[c.Name] = c
	}
	assert.False(t, byName["cloud reachable"].OK)
}
