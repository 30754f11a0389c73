package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAuditWrite(t *testing.T) {
	before := testutil.ToFloat64(auditWrites.WithLabelValues("failed"))
	ObserveAuditWrite(false)
	ObserveAuditWrite(true)
	assert.Equal(t, before+1, testutil.ToFloat64(auditWrites.WithLabelValues("failed")))
}

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/products", "200"))
	ObserveHTTPRequest("GET", "/api/products", 200, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/products", "200")))
}
