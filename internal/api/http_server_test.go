package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"funnelbot/internal/database"
	"funnelbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*HTTPServer, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHTTPServer(0, db, &logger), db
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestStats(t *testing.T) {
	server, db := newTestServer(t)
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)

	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, 1, models.Identity{Username: "a"}))
	require.NoError(t, db.UpsertUser(ctx, 2, models.Identity{Username: "b"}))
	require.NoError(t, db.SetSubscribed(ctx, 1, true))

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalUsers       int     `json:"total_users"`
		SubscribedUsers  int     `json:"subscribed_users"`
		SubscriptionRate float64 `json:"subscription_rate"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.TotalUsers)
	assert.Equal(t, 1, body.SubscribedUsers)
	assert.InDelta(t, 50.0, body.SubscriptionRate, 0.01)
}

func TestStatsMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/api/v1/stats", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
