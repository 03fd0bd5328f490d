// Package internaldefs holds the metric names shared by the Prometheus and
// OTel exporters, so both expose identical series and bucket boundaries.
package internaldefs
