package lifecycle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pixil98/go-battle/internal/lifecycle"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	active   metric.Int64UpDownCounter
	finished metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var err error
	mt := &metrics{}

	mt.active, err = m.Int64UpDownCounter(
		"lifecycle.battles.active",
		metric.WithDescription("Battles currently in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active counter: %w", err)
	}

	mt.finished, err = m.Int64Counter(
		"lifecycle.battles.finished",
		metric.WithDescription("Total battles that reached a result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating finished counter: %w", err)
	}

	return mt, nil
}

func (m *metrics) battleStarted(ctx context.Context) {
	m.active.Add(ctx, 1)
}

func (m *metrics) battleFinished(ctx context.Context) {
	m.active.Add(ctx, -1)
	m.finished.Add(ctx, 1)
}
