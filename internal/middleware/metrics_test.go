package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
)

func TestMetrics_CollapsesTaskIDs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for _, p := range []string{"/api/tasks/a", "/api/tasks/b", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "taskscribe_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var route, status string
			for _, lp := range metric.GetLabel() {
				switch lp.GetName() {
				case "route":
					route = lp.GetValue()
				case "status":
					status = lp.GetValue()
				}
			}
			counts[route+" "+status] = metric.GetCounter().GetValue()
		}
	}

	want := map[string]float64{
		"/api/tasks/{id} 404": 2,
		"other 404":           1,
	}
	if len(counts) != len(want) {
		t.Fatalf("expected %v, got %v", want, counts)
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, counts[k])
		}
	}
}
