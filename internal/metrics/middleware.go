package metrics

import (
	"net/http"
	"strings"
	"time"
)

// unmatchedPath labels requests no route matched, so probes of random URLs
// cannot grow the path label set.
const unmatchedPath = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the path of the ServeMux pattern that served r, without its method.
func routeLabel(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return unmatchedPath
	}
	if i := strings.IndexByte(p, ' '); i >= 0 {
		p = p[i+1:]
	}
	return p
}

// HTTPMiddleware records request count, latency and in-flight requests. It must wrap
// the ServeMux itself: the path label is the pattern the mux matched.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			reg.RecordRequest(r.Method, routeLabel(r), rec.status, time.Since(start).Seconds())
		})
	}
}
