package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(SyncRuns.WithLabelValues("fault_data", "done"))
	SyncRuns.WithLabelValues("fault_data", "done").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SyncRuns.WithLabelValues("fault_data", "done")))

	ExportedRecords.WithLabelValues("Device").Add(3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(ExportedRecords.WithLabelValues("Device")), 3.0)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	FaultsFetched.Add(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "geotab_faults_fetched_total")
	assert.Contains(t, string(body), "go_goroutines")
}
