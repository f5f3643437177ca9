package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvidenceProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_evidence_processed_total",
			Help: "Total number of evidence confirmations processed, by type and outcome (count)",
		},
		[]string{"evidence_type", "outcome"},
	)

	EvidenceProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_evidence_processing_duration_ms",
			Help:    "Processing duration for one evidence confirmation in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"outcome"},
	)

	MessageStateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_message_state_transitions_total",
			Help: "Total number of business message confirm/reject transitions (count)",
		},
		[]string{"transition"},
	)

	MessagesRoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_messages_routed_total",
			Help: "Total number of backend routing decisions, by resolution source (count)",
		},
		[]string{"domain", "source", "link"},
	)

	RoutingRulesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "connector_routing_rules_active",
			Help: "Number of active backend routing rules (count)",
		},
	)

	PModeVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_pmode_verifications_total",
			Help: "Total number of P-Mode verifications, by direction, mode and result (count)",
		},
		[]string{"direction", "mode", "status"},
	)

	EbmsIDsGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "connector_ebms_ids_generated_total",
			Help: "Total number of ebMS message ids assigned by the connector (count)",
		},
	)

	EvidenceMessagesSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_evidence_messages_submitted_total",
			Help: "Total number of derived evidence messages handed to the link queue (count)",
		},
		[]string{"direction", "evidence_type"},
	)

	PipelineStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_pipeline_steps_total",
			Help: "Total number of pipeline step executions, by step and result (count)",
		},
		[]string{"step", "status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)
)

func RegisterConnectorMetrics() {
	prometheus.MustRegister(EvidenceProcessedTotal)
	prometheus.MustRegister(EvidenceProcessingDuration)
	prometheus.MustRegister(MessageStateTransitionsTotal)
	prometheus.MustRegister(MessagesRoutedTotal)
	prometheus.MustRegister(RoutingRulesActive)
	prometheus.MustRegister(PModeVerificationsTotal)
	prometheus.MustRegister(EbmsIDsGeneratedTotal)
	prometheus.MustRegister(EvidenceMessagesSubmittedTotal)
	prometheus.MustRegister(PipelineStepsTotal)
}

func RegisterQueueMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncEvidenceProcessed(evidenceType, outcome string) {
	EvidenceProcessedTotal.WithLabelValues(evidenceType, outcome).Inc()
}

func ObserveEvidenceProcessingDuration(duration time.Duration, outcome string) {
	EvidenceProcessingDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func IncMessageStateTransition(transition string) {
	MessageStateTransitionsTotal.WithLabelValues(transition).Inc()
}

func IncMessagesRouted(domain, source, link string) {
	MessagesRoutedTotal.WithLabelValues(domain, source, link).Inc()
}

func SetRoutingRulesActive(count int) {
	RoutingRulesActive.Set(float64(count))
}

func IncEbmsIDGenerated() {
	EbmsIDsGeneratedTotal.Inc()
}

func IncPModeVerification(direction, mode, status string) {
	PModeVerificationsTotal.WithLabelValues(direction, mode, status).Inc()
}

func IncEvidenceMessageSubmitted(direction, evidenceType string) {
	EvidenceMessagesSubmittedTotal.WithLabelValues(direction, evidenceType).Inc()
}

func IncPipelineStep(step, status string) {
	PipelineStepsTotal.WithLabelValues(step, status).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}
