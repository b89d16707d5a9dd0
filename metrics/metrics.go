// Package metrics defines the instrumentation contract for solgate and a
// Prometheus-backed recorder.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
