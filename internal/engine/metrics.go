package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pixil98/go-battle/internal/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	resolved metric.Int64Counter
	rejected metric.Int64Counter
	timeouts metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var err error
	mt := &metrics{}

	mt.resolved, err = m.Int64Counter(
		"engine.turns.resolved",
		metric.WithDescription("Total battle turns resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolved counter: %w", err)
	}

	mt.rejected, err = m.Int64Counter(
		"engine.actions.rejected",
		metric.WithDescription("Total submitted actions rejected by validation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	mt.timeouts, err = m.Int64Counter(
		"engine.phases.timed_out",
		metric.WithDescription("Total selection or submission phases that hit their deadline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timeout counter: %w", err)
	}

	return mt, nil
}

func (m *metrics) actionRejected(ctx context.Context, kind string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("action", kind)))
}
