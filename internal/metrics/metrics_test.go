package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTurn(t *testing.T) {
	m := New()
	m.ObserveTurn("telecom", OutcomeOK)
	m.ObserveTurn("telecom", OutcomeOK)
	m.ObserveTurn("general", OutcomeModelError)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Turns.WithLabelValues("telecom", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("general", OutcomeModelError)))
}

func TestObserveSessionOp(t *testing.T) {
	m := New()
	m.ObserveSessionOp("save", nil)
	m.ObserveSessionOp("save", errors.New("boom"))
	m.ObserveSessionOp("list", nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionOps.WithLabelValues("save", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionOps.WithLabelValues("save", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionOps.WithLabelValues("list", "ok")))
}

func TestObserveModelAndPrompt(t *testing.T) {
	m := New()
	m.ObserveModel("gemini", 1500*time.Millisecond)
	m.ObservePrompt(1024)
	m.ObserveMatch("outage")

	require.Equal(t, 1, testutil.CollectAndCount(m.ModelLatency))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Matches.WithLabelValues("outage")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn("general", OutcomeOK)
		m.ObserveModel("gemini", time.Second)
		m.ObserveSessionOp("load", nil)
		m.ObserveMatch("none")
		m.ObservePrompt(10)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveTurn("general", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `memchat_turns_total{outcome="ok",variant="general"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
