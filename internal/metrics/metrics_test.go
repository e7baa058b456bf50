package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHTTPRequest(t *testing.T) {
	m, _ := Setup(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/api/v1/posts/{postID}", 200, 15*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/v1/posts/{postID}", 200, 5*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/v1/posts/{postID}", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/posts/{postID}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/posts/{postID}", "404")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m, h := Setup(prometheus.NewRegistry())
	m.IncrementConnections()
	m.RecordCacheHit()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "postdeck_websocket_connections 1")
	assert.Contains(t, string(body), "postdeck_cache_hits_total 1")
}
