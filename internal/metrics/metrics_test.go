package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serkac1000/apk-needfix/internal/constants"
	"github.com/serkac1000/apk-needfix/internal/metrics"
)

func TestPrometheus_RecordsOperations(t *testing.T) {
	p := metrics.NewPrometheus()

	p.OperationCompleted(constants.OperationCompile, 2*time.Second, "success", false)
	p.OperationCompleted(constants.OperationCompile, time.Second, "ToolExitedNonZero", false)
	p.ToolRan(constants.OperationCompile, false, 1)
	p.QueueWaited(constants.OperationCompile, 10*time.Millisecond, metrics.QueueAcquired)
	p.SlotsInUse(2)

	count, err := testutil.GatherAndCount(p.Registry(),
		"apkfix_operations_total", "apkfix_tool_runs_total", "apkfix_slots_in_use")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	expected := `
# HELP apkfix_slots_in_use Global invocation slots currently held
# TYPE apkfix_slots_in_use gauge
apkfix_slots_in_use 2
`
	require.NoError(t, testutil.GatherAndCompare(p.Registry(), strings.NewReader(expected), "apkfix_slots_in_use"))
}

func TestPrometheus_Handler(t *testing.T) {
	p := metrics.NewPrometheus()
	p.ToolRan(constants.OperationDecompile, true, 0)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apkfix_tool_runs_total{exit_code="0",operation="decompile",simulated="true"} 1`)
}

func TestPrometheus_Serve(t *testing.T) {
	p := metrics.NewPrometheus()
	ctx, cancel := context.WithCancel(zerolog.Nop().WithContext(context.Background()))
	defer cancel()

	addr, err := p.Serve(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr.String()+"/metrics", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "apkfix_slots_in_use")
}

func TestNoopRecorder(_ *testing.T) {
	var r metrics.Recorder = metrics.NoopRecorder{}
	r.QueueWaited(constants.OperationSign, time.Second, metrics.QueueTimedOut)
	r.SlotsInUse(1)
	r.ToolRan(constants.OperationSign, false, 0)
	r.OperationCompleted(constants.OperationSign, time.Second, "success", false)
}
