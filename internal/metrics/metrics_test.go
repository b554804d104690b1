package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestRecordRequest_LabelsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(200, 10*time.Millisecond)
	c.RecordRequest(200, 10*time.Millisecond)
	c.RecordRequest(401, 10*time.Millisecond)
	c.RecordRequest(0, time.Second)

	mf := gather(t, reg, "authclient_requests_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	require.Equal(t, map[string]float64{"200": 2, "401": 1, "none": 1}, got)

	h := gather(t, reg, "authclient_request_duration_seconds").GetMetric()[0].GetHistogram()
	require.Equal(t, uint64(4), h.GetSampleCount())
}

func TestRecordForcedLogoutAndRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordForcedLogout()
	c.RecordRefresh(RefreshSuccess)
	c.RecordRefresh(RefreshFailure)
	c.RecordRefresh(RefreshFailure)

	require.Equal(t, 1.0, gather(t, reg, "authclient_forced_logouts_total").GetMetric()[0].GetCounter().GetValue())

	got := map[string]float64{}
	for _, m := range gather(t, reg, "authclient_refresh_total").GetMetric() {
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	require.Equal(t, map[string]float64{"success": 1, "failure": 2}, got)
}

func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordForcedLogout()

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Result().Body)
	require.Contains(t, string(body), "authclient_forced_logouts_total 1")
}

func TestCollector_ImplementsRecorder(t *testing.T) {
	var _ Recorder = NewCollector(prometheus.NewRegistry())
	var _ Recorder = Nop{}
}
