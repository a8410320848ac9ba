package driver

import "time"

type BattleDriverOpt func(*BattleDriver)

func WithTickLength(tickLength time.Duration) BattleDriverOpt {
	return func(d *BattleDriver) {
		d.tickLength = tickLength
	}
}

// WithTickTimeout bounds each manager's sweep. Zero means no bound.
func WithTickTimeout(timeout time.Duration) BattleDriverOpt {
	return func(d *BattleDriver) {
		d.tickTimeout = timeout
	}
}
