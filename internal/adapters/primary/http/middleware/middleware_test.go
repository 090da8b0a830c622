package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"card-approval-service/internal/config"
	"card-approval-service/internal/observability"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/items/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(ContextRequestID)})
	})
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_Generated(t *testing.T) {
	r := newRouter(RequestID())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Contains(t, w.Body.String(), w.Header().Get(HeaderRequestID))
}

func TestRequestID_Propagated(t *testing.T) {
	r := newRouter(RequestID())
	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set(HeaderRequestID, "req-123")

	w := serve(r, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestLogging_PassesThrough(t *testing.T) {
	r := newRouter(RequestID(), Logging())

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil)).Code)
	assert.Equal(t, http.StatusInternalServerError, serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil)).Code)
}

func TestCORS_Wildcard(t *testing.T) {
	r := newRouter(CORS(config.CORSConfig{AllowedOrigins: "*"}))
	// httptest requests target example.com, so the origin must differ from it.
	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("Origin", "https://client.example.org")

	w := serve(r, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	r := newRouter(CORS(config.CORSConfig{AllowedOrigins: "https://a.example.com, https://b.example.com"}))

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("Origin", "https://b.example.com")
	w := serve(r, req)
	assert.Equal(t, "https://b.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitOrigins(" a ,,b "))
	assert.Empty(t, splitOrigins(""))
}

func TestMetrics_RouteTemplate(t *testing.T) {
	m := observability.NewMetrics()
	r := newRouter(Metrics(m))

	serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/items/2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	w := serve(m.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `card_approval_http_requests_total{endpoint="/items/:id",method="GET",status="200"} 2`)
	assert.Contains(t, body, `card_approval_http_requests_total{endpoint="unmatched",method="GET",status="404"} 1`)
	assert.Contains(t, body, `card_approval_http_requests_in_flight 0`)
}

func TestRateLimit(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{RPS: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil)).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{RPS: 0}))

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil)).Code)
	}
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)

	r := newRouter(RequestID(), Tracing())
	serve(r, httptest.NewRequest(http.MethodGet, "/items/7", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /items/:id", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}
