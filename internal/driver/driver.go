package driver

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second
)

// Manager is swept once per tick.
type Manager interface {
	Tick(context.Context) error
}

// BattleDriver sweeps phase deadlines and disconnect grace periods.
type BattleDriver struct {
	tickLength  time.Duration
	tickTimeout time.Duration
	managers    []Manager
}

func NewBattleDriver(managers []Manager, opts ...BattleDriverOpt) *BattleDriver {
	d := &BattleDriver{
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *BattleDriver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	slog.InfoContext(ctx, "battle driver started", "tick", d.tickLength, "managers", len(d.managers))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs every manager once. A failing manager does not stop the others.
func (d *BattleDriver) Tick(ctx context.Context) {
	for _, m := range d.managers {
		if err := d.tickOne(ctx, m); err != nil {
			slog.ErrorContext(ctx, "driver tick", "manager", managerName(m), "error", err)
		}
	}
}

func (d *BattleDriver) tickOne(ctx context.Context, m Manager) error {
	if d.tickTimeout <= 0 {
		return m.Tick(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d.tickTimeout)
	defer cancel()
	return m.Tick(ctx)
}

func managerName(m Manager) string {
	if s, ok := m.(interface{ String() string }); ok {
		return s.String()
	}
	return "unnamed"
}
