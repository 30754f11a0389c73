package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warranty_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warranty_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	auditWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warranty_audit_writes_total",
		Help: "Audit log writes by result",
	}, []string{"result"})

	documentFileRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warranty_document_file_removals_total",
		Help: "Document file removals by result",
	}, []string{"result"})

	queueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warranty_queue_messages_total",
		Help: "Broker messages by direction and result",
	}, []string{"direction", "result"})
)

// ObserveHTTPRequest records one HTTP request. route is the registered
// route pattern, not the raw path.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// ObserveAuditWrite counts an audit write as "ok" or "failed".
func ObserveAuditWrite(ok bool) {
	auditWrites.WithLabelValues(result(ok)).Inc()
}

// ObserveFileRemoval counts a document file removal as "ok" or "failed".
func ObserveFileRemoval(ok bool) {
	documentFileRemovals.WithLabelValues(result(ok)).Inc()
}

// ObserveQueueMessage counts a published ("out") or consumed ("in") message.
func ObserveQueueMessage(direction string, ok bool) {
	queueMessages.WithLabelValues(direction, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
