package elasticx

import (
	"github.com/clinia/searchx/loggerx"
	"github.com/clinia/searchx/otelx"
)

type ClientOption func(*client)

func WithLogger(l *loggerx.Logger) ClientOption {
	return func(c *client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTracer(t *otelx.Tracer) ClientOption {
	return func(c *client) {
		if t.IsLoaded() {
			c.tracer = t
		}
	}
}

func WithMeter(m *otelx.Meter) ClientOption {
	return func(c *client) {
		if m.IsLoaded() {
			c.meter = m
		}
	}
}
