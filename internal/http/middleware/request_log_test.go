package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lingua-backend/internal/observability"
	"github.com/yungbote/lingua-backend/internal/platform/ctxutil"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

func TestTraceContextSetsHeadersAndContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext(), RequestLogger(logger.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get("X-Request-Id"))
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatal("expected generated trace id")
	}
	if seen == nil || seen.RequestID != "req-123" {
		t.Fatalf("trace data not attached: %+v", seen)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/curricula/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/curricula/a", "/api/curricula/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`lingua_api_requests_total{method="GET",route="/api/curricula/:id",status="200"} 2`,
		`lingua_api_requests_total{method="GET",route="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
