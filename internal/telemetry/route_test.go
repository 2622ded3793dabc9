package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestRouteTag(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := chi.NewRouter()
	r.Use(RouteTag)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	traced := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, span := tp.Tracer("test").Start(req.Context(), "HTTP GET")
		defer span.End()
		r.ServeHTTP(w, req.WithContext(ctx))
	})

	rec := httptest.NewRecorder()
	traced.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/42", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].Name(); got != "GET /api/products/{id}" {
		t.Errorf("expected span name %q, got %q", "GET /api/products/{id}", got)
	}

	found := false
	for _, attr := range spans[0].Attributes() {
		if attr.Key == semconv.HTTPRouteKey && attr.Value.AsString() == "/api/products/{id}" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s attribute on span", semconv.HTTPRouteKey)
	}
}
