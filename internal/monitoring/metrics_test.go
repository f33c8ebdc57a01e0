package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hourlysheet/domain/activity"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishCountsActions(t *testing.T) {
	reg := NewRegistry()

	reg.Publish(activity.Entry{Action: activity.ActionImport, RecordCount: 12})
	reg.Publish(activity.Entry{Action: activity.ActionImport, RecordCount: 3})
	reg.Publish(activity.Entry{Action: activity.ActionAsk})

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.ActionsTotal.WithLabelValues("import")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ActionsTotal.WithLabelValues("ask")))
	assert.Equal(t, 15.0, testutil.ToFloat64(reg.RecordsProcessedTotal.WithLabelValues("import")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.Publish(activity.Entry{Action: activity.ActionFit})
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ActionsTotal.WithLabelValues("fit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ActionsTotal.WithLabelValues("fit")))
}

func TestHandlerServesTextFormat(t *testing.T) {
	reg := NewRegistry()
	reg.Publish(activity.Entry{Action: activity.ActionSeed, RecordCount: 5})

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hourlysheet_actions_total{action="seed"} 1`)
	assert.Contains(t, w.Body.String(), `hourlysheet_records_processed_total{action="seed"} 5`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
