// Package prometheus renders goCreds engine metrics in the Prometheus text
// exposition format.
//
// Counters are named gocreds_*_total. The login latency histogram is
// gocreds_login_latency_seconds. Nothing is registered globally; callers
// mount [Exporter.Handler].
package prometheus
