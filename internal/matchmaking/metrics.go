package matchmaking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pixil98/go-battle/internal/matchmaking"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	matches metric.Int64Counter
	waiting metric.Int64UpDownCounter
	wait    metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	m := meter()
	var err error
	mt := &metrics{}

	mt.matches, err = m.Int64Counter(
		"matchmaking.matches",
		metric.WithDescription("Total pairs matched into a battle"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating matches counter: %w", err)
	}

	mt.waiting, err = m.Int64UpDownCounter(
		"matchmaking.waiting",
		metric.WithDescription("Players currently waiting for a match"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating waiting counter: %w", err)
	}

	mt.wait, err = m.Float64Histogram(
		"matchmaking.wait",
		metric.WithDescription("Time the matched opponent spent in the queue"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wait histogram: %w", err)
	}

	return mt, nil
}

func (m *metrics) waitingDelta(ctx context.Context, n int64) {
	m.waiting.Add(ctx, n)
}

func (m *metrics) matched(ctx context.Context, enqueuedAt, now time.Time) {
	m.matches.Add(ctx, 1)
	m.wait.Record(ctx, now.Sub(enqueuedAt).Seconds())
}
