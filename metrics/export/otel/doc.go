// Package otel publishes goCreds engine metrics through an OpenTelemetry
// meter.
//
// Each counter becomes an Int64ObservableCounter and each histogram bucket
// an Int64ObservableGauge. A single callback reads the engine snapshot per
// collection. The caller owns the MeterProvider.
package otel
