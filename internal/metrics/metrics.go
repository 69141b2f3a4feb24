package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workload_review_transitions_total",
		Help: "审核流转次数",
	}, []string{"record", "role", "status"})

	reviewRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workload_review_rejections_total",
		Help: "被守卫拒绝的审核请求",
	}, []string{"record", "reason"})

	attachmentCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workload_attachment_cleanup_failures_total",
		Help: "附件清理失败次数",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workload_http_request_duration_seconds",
		Help:    "HTTP 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Record 类型标签
const (
	RecordWorkload = "workload"
	RecordProject  = "project"
)

// ReviewApplied 记录一次成功的审核流转
func ReviewApplied(record, role, status string) {
	reviewTransitions.WithLabelValues(record, role, status).Inc()
}

// ReviewRefused 记录一次被拒绝的审核
func ReviewRefused(record, reason string) {
	reviewRejections.WithLabelValues(record, reason).Inc()
}

// AttachmentCleanupFailed 附件清理失败
func AttachmentCleanupFailed() {
	attachmentCleanupFailures.Inc()
}

// ObserveRequest 记录请求耗时
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
