package otelx

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Meter carries the meter instruments are created from.
type Meter struct {
	meter metric.Meter
}

// NewMeter creates a meter from the caller's provider. A nil provider yields a no-op meter.
func NewMeter(name string, mp metric.MeterProvider) *Meter {
	if mp == nil {
		return NewNoopMeter()
	}
	return &Meter{meter: mp.Meter(name)}
}

func NewNoopMeter() *Meter {
	return &Meter{meter: noop.NewMeterProvider().Meter("noop")}
}

// IsLoaded returns true if the meter has been loaded.
func (m *Meter) IsLoaded() bool {
	return m != nil && m.meter != nil
}

// Meter returns the underlying OpenTelemetry meter.
func (m *Meter) Meter() metric.Meter {
	return m.meter
}
