package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Route("/v1/projects/{project}", func(r chi.Router) {
		r.Get("/quota", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		r.Post("/usage", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# scrape"))
	})
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
	return rr
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	h := newTestRouter()
	const pattern = "/v1/projects/{project}/quota"
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", pattern, "200"))

	serve(h, "GET", "/v1/projects/shop/quota")
	serve(h, "GET", "/v1/projects/legacy/quota")

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", pattern, "200"))
	if got-before != 2 {
		t.Errorf("expected 2 requests under %s, got %v", pattern, got-before)
	}
	if n := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/projects/shop/quota", "200")); n != 0 {
		t.Errorf("raw path must not be a label value, got %v", n)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := newTestRouter()
	const pattern = "/v1/projects/{project}/usage"
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", pattern, "503"))

	rr := serve(h, "POST", "/v1/projects/shop/usage")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", pattern, "503")); got-before != 1 {
		t.Errorf("expected one 503 sample, got %v", got-before)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	h := newTestRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))

	serve(h, "GET", "/nope")

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")); got-before != 1 {
		t.Errorf("expected one unmatched sample, got %v", got-before)
	}
}

func TestMiddleware_SkipsScrapes(t *testing.T) {
	h := newTestRouter()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", scrapePath, "200"))

	rr := serve(h, "GET", "/metrics")
	if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
		t.Fatalf("scrape not served: %d %q", rr.Code, rr.Body.String())
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", scrapePath, "200")); got != before {
		t.Errorf("scrapes must not be counted, delta %v", got-before)
	}
}

func TestRouteLabel_OutsideChi(t *testing.T) {
	if got := routeLabel(httptest.NewRequest("GET", "/x", http.NoBody)); got != unmatchedRoute {
		t.Errorf("expected %q, got %q", unmatchedRoute, got)
	}
}
