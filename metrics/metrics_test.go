package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBacktest(t *testing.T) {
	okBefore := testutil.ToFloat64(BacktestRuns.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(BacktestRuns.WithLabelValues("error"))

	RecordBacktest("ZZZ", 12.5, nil)
	RecordBacktest("ZZZ", 0, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(BacktestRuns.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(BacktestRuns.WithLabelValues("error")))
	assert.Equal(t, 12.5, testutil.ToFloat64(BacktestReturn.WithLabelValues("ZZZ")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	CacheWriteFailures.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "screener_cache_write_failures_total"))
}
