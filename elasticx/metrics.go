package elasticx

import (
	"context"

	"github.com/clinia/searchx/otelx"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	documentWritesMetric    = "searchx.elastic.document.writes"
	documentConflictsMetric = "searchx.elastic.document.conflicts"
)

type metrics struct {
	writes    metric.Int64Counter
	conflicts metric.Int64Counter
}

func newMetrics(m *otelx.Meter) (*metrics, error) {
	writes, err := m.Meter().Int64Counter(documentWritesMetric,
		metric.WithDescription("Documents saved or deleted"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	conflicts, err := m.Meter().Int64Counter(documentConflictsMetric,
		metric.WithDescription("Versioned writes rejected by the engine"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &metrics{writes: writes, conflicts: conflicts}, nil
}

func (m *metrics) write(ctx context.Context, index, typeName, result string) {
	m.writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("elastic.index", index),
		attribute.String("elastic.type", typeName),
		attribute.String("elastic.result", result),
	))
}

func (m *metrics) conflict(ctx context.Context, index, typeName string, ignored bool) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("elastic.index", index),
		attribute.String("elastic.type", typeName),
		attribute.Bool("elastic.conflict.ignored", ignored),
	))
}
