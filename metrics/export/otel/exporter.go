package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is the read side of an engine. *goCreds.Engine implements it.
type Source interface {
	MetricsSnapshot() goCreds.MetricsSnapshot
	AuditDropped() uint64
	DeliveryStats() goCreds.DeliveryStats
}

type observedCounter struct {
	id         goCreds.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      goCreds.MetricID
	buckets [goCreds.LoginLatencyBuckets]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type Exporter struct {
	source       Source
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram

	auditDropped    metric.Int64ObservableCounter
	deliverySent    metric.Int64ObservableCounter
	deliveryFailed  metric.Int64ObservableCounter
	deliveryDropped metric.Int64ObservableCounter
}

// New registers the instruments on meter. Call Close to unregister.
func New(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*(goCreds.LoginLatencyBuckets+1)+4)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	extra := []struct {
		dst  *metric.Int64ObservableCounter
		name string
		help string
	}{
		{&exporter.auditDropped, "gocreds_audit_dropped_total", "Audit events dropped under backpressure."},
		{&exporter.deliverySent, "gocreds_delivery_sent_total", "Messages accepted by the mailer."},
		{&exporter.deliveryFailed, "gocreds_delivery_failed_total", "Messages the mailer rejected or timed out."},
		{&exporter.deliveryDropped, "gocreds_delivery_dropped_total", "Messages dropped because the outbox was full."},
	}
	for _, e := range extra {
		ins, err := meter.Int64ObservableCounter(e.name, metric.WithDescription(e.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", e.name, err)
		}
		*e.dst = ins
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := 0; i < len(cumulative); i++ {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	delivery := e.source.DeliveryStats()
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	observer.ObserveInt64(e.deliverySent, int64(delivery.Sent))
	observer.ObserveInt64(e.deliveryFailed, int64(delivery.Failed))
	observer.ObserveInt64(e.deliveryDropped, int64(delivery.Dropped))
	return nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
