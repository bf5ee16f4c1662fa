// Package metrics exposes Prometheus metrics for the prediction service:
// request outcomes, inference latency and which artifacts were loaded at
// startup. Metrics live in a private registry served by Handler.
package metrics
