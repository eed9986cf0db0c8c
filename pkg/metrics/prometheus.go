// Package metrics provides Prometheus metrics for the model router service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Histogram bucket layouts.
var (
	judgeScoreBuckets  = []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}
	runDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}
	latencyMsBuckets   = []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP edge
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Gateway
	gatewayCalls   *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	gatewayTokens  *prometheus.CounterVec
	gatewayCost    *prometheus.CounterVec
	gatewayRetries *prometheus.CounterVec

	// Classification and routing
	classifications  *prometheus.CounterVec
	routingDecisions *prometheus.CounterVec
	routingSwitches  *prometheus.CounterVec
	routingFailures  prometheus.Counter

	// Judging
	judgeScores      *prometheus.HistogramVec
	judgeExclusions  *prometheus.CounterVec
	debatesTriggered prometheus.Counter

	// Evaluation runs
	runTransitions     *prometheus.CounterVec
	runOutcomes        *prometheus.CounterVec
	runDuration        prometheus.Histogram
	runFailureFraction prometheus.Gauge

	// Performance table
	tableVersion       prometheus.Gauge
	tablePublishedUnix prometheus.Gauge
	tableEntries       prometheus.Gauge

	// Work pool
	poolQueueDepth    prometheus.Gauge
	poolActiveWorkers prometheus.Gauge
	poolTaskLatency   prometheus.Histogram
	poolTaskErrors    prometheus.Counter

	// Archive
	archiveWrites *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "router",
		histogramBuckets: latencyMsBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Name: name, Help: help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.gatewayCalls = m.counterVec("gateway_calls_total", "Gateway invocations by model and outcome", "model", "outcome")
	m.gatewayLatency = m.histogramVec("gateway_latency_milliseconds", "Gateway invocation latency in milliseconds", m.histogramBuckets, "model")
	m.gatewayTokens = m.counterVec("gateway_tokens_total", "Tokens consumed through the gateway", "model", "direction")
	m.gatewayCost = m.counterVec("gateway_cost_usd_total", "Estimated spend through the gateway in USD", "model")
	m.gatewayRetries = m.counterVec("gateway_rate_limit_retries_total", "Retries after upstream rate limiting", "model")

	m.classifications = m.counterVec("classifications_total", "Prompt classifications by method and category", "method", "category")
	m.routingDecisions = m.counterVec("routing_decisions_total", "Routing decisions by category, serving model and switch flag", "category", "model", "switched")
	m.routingSwitches = m.counterVec("routing_switches_total", "Fallback switches by reason", "reason")
	m.routingFailures = m.counter("routing_failures_total", "Requests that failed after the fallback attempt")

	m.judgeScores = m.histogramVec("judge_scores", "Valid judge scores by judge model", judgeScoreBuckets, "judge", "round")
	m.judgeExclusions = m.counterVec("judge_exclusions_total", "Judge results excluded from aggregation", "judge", "reason")
	m.debatesTriggered = m.counter("debates_triggered_total", "Answers that required a debate round")

	m.runTransitions = m.counterVec("run_state_transitions_total", "Evaluation run state transitions", "state")
	m.runOutcomes = m.counterVec("runs_total", "Finished evaluation runs by status", "status")
	m.runDuration = m.histogram("run_duration_seconds", "Evaluation run duration in seconds", runDurationBuckets)
	m.runFailureFraction = m.gauge("run_failure_fraction", "Failed pair fraction of the latest run")

	m.tableVersion = m.gauge("performance_table_version", "Version of the live performance table")
	m.tablePublishedUnix = m.gauge("performance_table_published_unixtime", "Publish time of the live performance table")
	m.tableEntries = m.gauge("performance_table_entries", "Ranked entries across all categories")

	m.poolQueueDepth = m.gauge("pool_queue_depth", "Tasks waiting in the evaluation queue")
	m.poolActiveWorkers = m.gauge("pool_active_workers", "Workers currently executing a task")
	m.poolTaskLatency = m.histogram("pool_task_latency_milliseconds", "Evaluation task latency in milliseconds", m.histogramBuckets)
	m.poolTaskErrors = m.counter("pool_task_errors_total", "Evaluation tasks that returned an error")

	m.archiveWrites = m.counterVec("archive_writes_total", "Archive writes by record kind and outcome", "kind", "outcome")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordHTTPRequest counts one request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordGatewayCall records one gateway invocation. outcome is "ok" or an error kind.
func RecordGatewayCall(model, outcome string, latency time.Duration) {
	globalManager.gatewayCalls.WithLabelValues(model, outcome).Inc()
	globalManager.gatewayLatency.WithLabelValues(model).Observe(float64(latency.Milliseconds()))
}

// RecordGatewayUsage adds token and cost usage for a successful invocation.
func RecordGatewayUsage(model string, tokensIn, tokensOut int, costUSD float64) {
	globalManager.gatewayTokens.WithLabelValues(model, "input").Add(float64(tokensIn))
	globalManager.gatewayTokens.WithLabelValues(model, "output").Add(float64(tokensOut))
	if costUSD > 0 {
		globalManager.gatewayCost.WithLabelValues(model).Add(costUSD)
	}
}

// RecordGatewayRetry counts a retry after rate limiting.
func RecordGatewayRetry(model string) {
	globalManager.gatewayRetries.WithLabelValues(model).Inc()
}

// RecordClassification counts a classification outcome.
func RecordClassification(method, category string) {
	globalManager.classifications.WithLabelValues(method, category).Inc()
}

// RecordRoutingDecision counts a served request.
func RecordRoutingDecision(category, model string, switched bool) {
	globalManager.routingDecisions.WithLabelValues(category, model, strconv.FormatBool(switched)).Inc()
}

// RecordRoutingSwitch counts a fallback by reason kind.
func RecordRoutingSwitch(reason string) {
	globalManager.routingSwitches.WithLabelValues(reason).Inc()
}

// RecordRoutingFailure counts a request that exhausted its fallback.
func RecordRoutingFailure() {
	globalManager.routingFailures.Inc()
}

// RecordJudgeScore observes a valid score.
func RecordJudgeScore(judge string, round int, score float64) {
	globalManager.judgeScores.WithLabelValues(judge, strconv.Itoa(round)).Observe(score)
}

// RecordJudgeExclusion counts an excluded judge result.
func RecordJudgeExclusion(judge, reason string) {
	globalManager.judgeExclusions.WithLabelValues(judge, reason).Inc()
}

// RecordDebateTriggered counts a second judging round.
func RecordDebateTriggered() {
	globalManager.debatesTriggered.Inc()
}

// RecordRunTransition counts entry into an orchestrator state.
func RecordRunTransition(state string) {
	globalManager.runTransitions.WithLabelValues(state).Inc()
}

// RecordRunOutcome records a finished run.
func RecordRunOutcome(status string, duration time.Duration, failureFraction float64) {
	globalManager.runOutcomes.WithLabelValues(status).Inc()
	globalManager.runDuration.Observe(duration.Seconds())
	globalManager.runFailureFraction.Set(failureFraction)
}

// UpdatePerformanceTable reflects a newly published table.
func UpdatePerformanceTable(version uint64, publishedAt time.Time, entries int) {
	globalManager.tableVersion.Set(float64(version))
	globalManager.tablePublishedUnix.Set(float64(publishedAt.Unix()))
	globalManager.tableEntries.Set(float64(entries))
}

// UpdatePoolQueueDepth sets the number of waiting tasks.
func UpdatePoolQueueDepth(depth int) {
	globalManager.poolQueueDepth.Set(float64(depth))
}

// AddPoolActiveWorkers moves the active worker gauge by delta.
func AddPoolActiveWorkers(delta int) {
	globalManager.poolActiveWorkers.Add(float64(delta))
}

// RecordPoolTask observes a finished task.
func RecordPoolTask(latency time.Duration, failed bool) {
	globalManager.poolTaskLatency.Observe(float64(latency.Milliseconds()))
	if failed {
		globalManager.poolTaskErrors.Inc()
	}
}

// RecordArchiveWrite counts an archive write.
func RecordArchiveWrite(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalManager.archiveWrites.WithLabelValues(kind, outcome).Inc()
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
