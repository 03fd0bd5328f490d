package goCreds

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goCreds/internal"
	internalaudit "github.com/MrEthical07/goCreds/internal/audit"
	"github.com/MrEthical07/goCreds/internal/flows"
	"github.com/MrEthical07/goCreds/internal/outbox"
	"github.com/MrEthical07/goCreds/jwt"
	"github.com/MrEthical07/goCreds/password"
)

// Engine runs the credential lifecycle: registration, activation, login,
// password reset, TOTP enrollment and account changes.
//
// An Engine is built once with [Builder] and is safe for concurrent use. Call
// [Engine.Close] on shutdown to flush queued deliveries and audit events.
type Engine struct {
	config  Config
	store   CredentialStore
	hasher  password.Hasher
	codec   *internal.TokenCodec
	totp    *totpManager
	jwt     *jwt.Manager
	audit   *internalaudit.Dispatcher
	outbox  *outbox.Outbox
	metrics *Metrics
	logger  zerolog.Logger
	flow    flows.Service
	now     func() time.Time
}

// Close stops the delivery and audit workers after they drain. It is safe to
// call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.outbox != nil {
		e.outbox.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counters for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.flow.Initialized()
}

func (e *Engine) warnf(format string, args ...any) {
	e.logger.Warn().Msgf(format, args...)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}
