package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/derivrecon/internal/config"
)

func TestMetrics_ObserveReconstruct(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveReconstruct("first", "", 2*time.Millisecond)
	m.ObserveReconstruct("first", "parse_error", time.Millisecond)
	m.ObserveReconstruct("second", "integration_error", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("first", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("first", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("parse_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.DurationSeconds))
}

func TestMetrics_InvalidPoints(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveInvalidPoints(0)
	m.ObserveInvalidPoints(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.InvalidPointsTotal))
}

func TestMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveReconstruct("first", "", time.Millisecond)
	m.ObserveInvalidPoints(1)

	expected := `
# HELP derivrecon_sample_points_invalid_total Sample points with no real value
# TYPE derivrecon_sample_points_invalid_total counter
derivrecon_sample_points_invalid_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "derivrecon_sample_points_invalid_total"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	log.Info("dropped")
	log.Warn("kept", "kind", "parse_error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "parse_error", rec["kind"])

	buf.Reset()
	NewLogger(&buf, config.LogConfig{Level: "debug", Format: "text"}).Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestInitTracing(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TraceConfig{Exporter: "none"}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = InitTracing(context.Background(), config.TraceConfig{Exporter: "zipkin"}, "test")
	assert.Error(t, err)
}
