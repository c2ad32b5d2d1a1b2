package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

type staticPending []verification.Record

func (s staticPending) List() []verification.Record { return s }

type staticCount int64

func (s staticCount) Count(context.Context) (int64, error) { return int64(s), nil }

func do(t *testing.T, g *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	g.ServeHTTP(w, req)
	return w
}

func TestStatusRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "sevenkey_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	g := New(Options{
		Pending: staticPending{{
			ID:        3,
			Requester: verification.Member{ID: "42"},
			Profile:   game.Profile{Game: game.Osu, Username: "alice", Country: "FR"},
			State:     verification.StateAwaitingDecision,
		}},
		Users:    staticCount(7),
		Gatherer: reg,
		Checks:   []Check{{Name: "database", Probe: func(context.Context) error { return nil }}},
	})

	w := do(t, g, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, g, "/v1/pending")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count   int           `json:"count"`
		Pending []pendingView `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "alice", body.Pending[0].Username)
	assert.Equal(t, "awaiting_decision", body.Pending[0].State)

	w = do(t, g, "/v1/stats")
	assert.JSONEq(t, `{"pending":1,"verified":7}`, w.Body.String())

	w = do(t, g, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "sevenkey_test_total 1"))
}

func TestHealthzDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := New(Options{
		Pending: staticPending{},
		Checks:  []Check{{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }}},
	})

	w := do(t, g, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"connection refused"}}`, w.Body.String())
}
