package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics surface the services record against. A noop
// implementation backs deployments that disable metrics.
type Recorder interface {
	RecordRequestTokenIssued(result string)
	RecordGrant()
	RecordTokenExchange(result string)
	RecordTokenRevoked()
	RecordReplayRejected()
	RecordDeviceResolved(created bool)
	RecordSeed(success bool)

	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	RequestTokensIssuedTotal *prometheus.CounterVec
	GrantsRecordedTotal      prometheus.Counter
	TokenExchangesTotal      *prometheus.CounterVec
	TokensRevokedTotal       prometheus.Counter
	ReplaysRejectedTotal     prometheus.Counter
	DevicesResolvedTotal     *prometheus.CounterVec
	SeedsTotal               *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns the Prometheus recorder when enabled, otherwise a noop.
// sync.Once guards against double registration.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		RequestTokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_request_tokens_issued_total",
				Help: "Total number of request token issuance attempts",
			},
			[]string{"result"},
		),
		GrantsRecordedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_grants_recorded_total",
				Help: "Total number of owner grants attached to request tokens",
			},
		),
		TokenExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_exchanges_total",
				Help: "Total number of access token exchange attempts",
			},
			[]string{"result"},
		),
		TokensRevokedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of access tokens revoked",
			},
		),
		ReplaysRejectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_replays_rejected_total",
				Help: "Total number of requests rejected by the replay guard",
			},
		),
		DevicesResolvedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devices_resolved_total",
				Help: "Total number of device resolutions by outcome",
			},
			[]string{"outcome"}, // created, existing
		),
		SeedsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seeds_total",
				Help: "Total number of bootstrap seeding attempts",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) RecordRequestTokenIssued(result string) {
	m.RequestTokensIssuedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordGrant() {
	m.GrantsRecordedTotal.Inc()
}

func (m *Metrics) RecordTokenExchange(result string) {
	m.TokenExchangesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTokenRevoked() {
	m.TokensRevokedTotal.Inc()
}

func (m *Metrics) RecordReplayRejected() {
	m.ReplaysRejectedTotal.Inc()
}

func (m *Metrics) RecordDeviceResolved(created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	m.DevicesResolvedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSeed(success bool) {
	result := "fail"
	if success {
		result = "success"
	}
	m.SeedsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
