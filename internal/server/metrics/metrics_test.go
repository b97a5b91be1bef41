package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStorage(t *testing.T) {
	m := New()

	m.ObserveStorage("s3", "upload", nil, 10*time.Millisecond)
	m.ObserveStorage("s3", "upload", errors.New("x"), time.Second)
	m.ObserveStorage("s3", "upload", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.storageCalls.WithLabelValues("s3", "upload", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageCalls.WithLabelValues("s3", "upload", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.storageDuration))
}

func TestObserveHTTPAndEvents(t *testing.T) {
	m := New()

	m.ObserveHTTP("GET", "/api/gallery", 200, time.Millisecond)
	m.ObserveHTTP("GET", "/api/gallery", 403, time.Millisecond)
	m.ObserveEvent("gallery.photo_uploaded", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/gallery", "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("gallery.photo_uploaded", "ok")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP("POST", "/api/rsvp", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), `wedding_http_requests_total{code="200",method="POST",route="/api/rsvp"} 1`))
}
