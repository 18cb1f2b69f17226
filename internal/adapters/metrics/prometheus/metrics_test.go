package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/keepster-cli/internal/ports"
)

func TestMetricsCountDecisions(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDecision(ports.DecisionKeep)
	m.ObserveDecision(ports.DecisionKeep)
	m.ObserveDecision(ports.DecisionDelete)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("keep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("delete")))
}

func TestMetricsPageFetchAndFlushOutcomes(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObservePageFetch(80, 60, 15*time.Millisecond, nil)
	m.ObservePageFetch(0, 0, time.Millisecond, errors.New("offline"))
	m.ObserveFlush(12, 5*time.Millisecond, nil)
	m.ObserveFlush(12, 5*time.Millisecond, errors.New("denied"))
	m.ObserveCommit()
	m.SetQueueLength(42)
	m.ObserveMembershipBuild(300, time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pageFetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pageFetches.WithLabelValues("error")))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.itemsAppended))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.flushedItems))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.queueLength))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.membershipSize))
}

func TestMetricsRegistryExposition(t *testing.T) {
	t.Parallel()

	m := New()
	m.SetQueueLength(3)

	expected := `
# HELP keepster_queue_length Items waiting in the review queue.
# TYPE keepster_queue_length gauge
keepster_queue_length 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "keepster_queue_length"))
}

func TestServerServesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDecision(ports.DecisionSkip)

	server, err := Listen("127.0.0.1:0", m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `keepster_decisions_total{decision="skip"} 1`)
}
