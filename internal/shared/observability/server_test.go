package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name   string
		health func(context.Context) HealthStatus
		code   int
		status string
	}{
		{name: "default", health: nil, code: http.StatusOK, status: "up"},
		{name: "up", health: func(context.Context) HealthStatus {
			return HealthStatus{Status: "up", LastRun: "2026-02-13T10:00:00Z"}
		}, code: http.StatusOK, status: "up"},
		{name: "down", health: func(context.Context) HealthStatus {
			return HealthStatus{Status: "down", Error: "boom"}
		}, code: http.StatusServiceUnavailable, status: "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(NewServer("", tt.health).Handler())
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/health")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			var got HealthStatus
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	ReloadsTotal.Inc()

	srv := httptest.NewServer(NewServer("", nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "strata_reloads_total"), "metrics body misses strata_reloads_total")
}

func TestServer_StopWithoutStart(t *testing.T) {
	assert.NoError(t, NewServer("127.0.0.1:0", nil).Stop(context.Background()))
}

func TestSetupTracing_EmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "  ")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
