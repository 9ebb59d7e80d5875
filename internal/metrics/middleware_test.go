package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// find returns the sample of family name whose labels include every pair in labels.
func find(t *testing.T, reg *Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

func requestCount(t *testing.T, reg *Registry, method, path, status string) float64 {
	t.Helper()
	m := find(t, reg, "http_requests_total", map[string]string{"method": method, "path": path, "status": status})
	if m == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func inFlight(t *testing.T, reg *Registry) float64 {
	t.Helper()
	m := find(t, reg, "http_requests_in_flight", nil)
	require.NotNil(t, m)
	return m.GetGauge().GetValue()
}

func testMux(t *testing.T, reg *Registry, during *float64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /signals", func(w http.ResponseWriter, r *http.Request) {
		if during != nil {
			*during = inFlight(t, reg)
		}
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("GET /report", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return HTTPMiddleware(reg)(mux)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHTTPMiddleware_LabelsByRoute(t *testing.T) {
	reg := NewRegistry()
	h := testMux(t, reg, nil)

	serve(h, "GET", "/signals?symbol=SPY")
	serve(h, "GET", "/signals?limit=5")

	assert.Equal(t, 2.0, requestCount(t, reg, "GET", "/signals", "2xx"))
}

func TestHTTPMiddleware_CapturesStatusCode(t *testing.T) {
	reg := NewRegistry()
	h := testMux(t, reg, nil)

	w := serve(h, "GET", "/report")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, requestCount(t, reg, "GET", "/report", "4xx"))
}

func TestHTTPMiddleware_UnmatchedPaths(t *testing.T) {
	reg := NewRegistry()
	h := testMux(t, reg, nil)

	serve(h, "GET", "/wp-admin")
	serve(h, "GET", "/.env")
	serve(h, "POST", "/signals")

	assert.Equal(t, 2.0, requestCount(t, reg, "GET", unmatchedPath, "4xx"))
	assert.Equal(t, 1.0, requestCount(t, reg, "POST", unmatchedPath, "4xx"))
	assert.Zero(t, requestCount(t, reg, "GET", "/wp-admin", "4xx"))
}

func TestHTTPMiddleware_RecordsDuration(t *testing.T) {
	reg := NewRegistry()
	serve(testMux(t, reg, nil), "GET", "/signals")

	m := find(t, reg, "http_request_duration_seconds", map[string]string{"method": "GET", "path": "/signals"})
	require.NotNil(t, m)
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestHTTPMiddleware_TracksInFlight(t *testing.T) {
	reg := NewRegistry()
	during := -1.0
	serve(testMux(t, reg, &during), "GET", "/signals")

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, inFlight(t, reg))
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"GET /report.txt", "/report.txt"},
		{"/healthz", "/healthz"},
		{"", unmatchedPath},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/x", nil)
		r.Pattern = tt.pattern
		assert.Equal(t, tt.want, routeLabel(r), tt.pattern)
	}
}
