package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat sync service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_operations_total",
			Help: "Tree store operations by backend, operation and result.",
		},
		[]string{"backend", "op", "result"},
	)
	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_store_operation_duration_seconds",
			Help:    "Tree store operation latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
	fanoutPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_published_total",
			Help: "Fan-out notifications published by topic family.",
		},
		[]string{"topic"},
	)
	fanoutDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_fanout_dropped_total",
			Help: "Fan-out frames dropped because a subscriber queue was full.",
		},
	)
	reconcileRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_reconcile_repairs_total",
			Help: "Chat summaries repaired by the reconciliation sweep.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		storeOperationsTotal,
		storeOperationDuration,
		fanoutPublishedTotal,
		fanoutDroppedTotal,
		reconcileRepairsTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// ObserveStoreOperation records one tree store call.
func ObserveStoreOperation(backend, op string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOperationsTotal.WithLabelValues(backend, op, result).Inc()
	storeOperationDuration.WithLabelValues(backend, op).Observe(elapsed.Seconds())
}

// IncFanoutPublished counts a publish. Per-chat topics are folded into one label value.
func IncFanoutPublished(topic string) {
	if strings.HasPrefix(topic, "messages.") {
		topic = "messages"
	}
	fanoutPublishedTotal.WithLabelValues(topic).Inc()
}

func IncFanoutDropped() {
	fanoutDroppedTotal.Inc()
}

func AddReconcileRepairs(kind string, n int) {
	if n > 0 {
		reconcileRepairsTotal.WithLabelValues(kind).Add(float64(n))
	}
}
