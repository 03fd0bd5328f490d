package goCreds

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter (or histogram) in [Metrics].
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricActivationSuccess
	MetricActivationFailure
	MetricActivationResent
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginTwoFactorRequired
	MetricLoginPasswordUpgraded
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricTOTPEnrollmentStarted
	MetricTOTPEnabled
	MetricTOTPDisabled
	MetricTOTPFailure
	MetricAccountUpdated
	MetricAccountUpdateRejected
	MetricSessionIssued
	MetricSessionRejected
	MetricTokenIssueFailure
	MetricTokenRedeemRace
	MetricDeliveryQueued
	MetricDeliveryFailure
	MetricLoginLatency
	metricIDCount
)

// LoginLatencyBounds are the upper bounds of the login latency histogram
// buckets. A final +Inf bucket follows the last bound. Login time is dominated
// by password hashing, so the range starts at 10ms and reaches into seconds.
var LoginLatencyBounds = [...]time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// LoginLatencyBuckets is the number of histogram buckets including +Inf.
const LoginLatencyBuckets = len(LoginLatencyBounds) + 1

// counter sits on its own cache line so hot counters do not false-share.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters and an optional login latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	loginLatency  [LoginLatencyBuckets]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets
// are per-bucket counts, not cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg. When cfg.Enabled is false
// every operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d for id. Only [MetricLoginLatency] has a histogram; other
// ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricLoginLatency {
		return
	}
	m.loginLatency[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies all counters and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, LoginLatencyBuckets)
		for i := range buckets {
			buckets[i] = m.loginLatency[i].Load()
		}
		s.Histograms[MetricLoginLatency] = buckets
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range LoginLatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(LoginLatencyBounds)
}
