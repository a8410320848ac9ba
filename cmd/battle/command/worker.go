package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/driver"
	"github.com/pixil98/go-battle/internal/gateway"
	"github.com/pixil98/go-battle/internal/lifecycle"
	"github.com/pixil98/go-battle/internal/listener"
	"github.com/pixil98/go-battle/internal/matchmaking"
	"github.com/pixil98/go-battle/internal/messaging"
	"github.com/pixil98/go-battle/internal/session"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	cat, err := cfg.Storage.BuildCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	store, err := cfg.Cache.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("creating battle store: %w", err)
	}

	repo, err := cfg.Persistence.BuildRepository()
	if err != nil {
		return nil, fmt.Errorf("creating battle repository: %w", err)
	}

	registry, err := cfg.Engine.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("creating narration registry: %w", err)
	}

	// The gateway needs the engine and lifecycle, and both report back to it.
	relay := &stateRelay{}

	lifecycleManager, err := cfg.Engine.BuildLifecycle(store, repo, cat, registry, relay)
	if err != nil {
		return nil, fmt.Errorf("creating lifecycle manager: %w", err)
	}

	turnEngine, err := cfg.Engine.BuildEngine(store, lifecycleManager, registry, relay)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	queue, err := matchmaking.NewQueue(lifecycleManager)
	if err != nil {
		return nil, fmt.Errorf("creating matchmaking queue: %w", err)
	}

	gw := gateway.NewGateway(
		session.NewRegistry(),
		cfg.Session.BuildVerifier(),
		queue,
		turnEngine,
		lifecycleManager,
		messaging.NewBroadcaster(natsServer),
	)
	relay.set(gw)

	// Create Listeners
	cm := listener.NewConnectionManager(gw, natsServer)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		worker, err := l.BuildListener(gw, natsServer, cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = worker
	}

	battleDriver := driver.NewBattleDriver(
		[]driver.Manager{turnEngine, lifecycleManager},
		driver.WithTickLength(cfg.tickInterval()),
		driver.WithTickTimeout(cfg.tickInterval()),
	)

	return service.WorkerList{
		"nats":      natsServer,
		"driver":    battleDriver,
		"listeners": &listeners,
	}, nil
}

// stateRelay forwards battle notifications to an observer set after
// construction.
type stateRelay struct {
	target atomic.Pointer[lifecycle.Observer]
}

func (r *stateRelay) set(o lifecycle.Observer) {
	r.target.Store(&o)
}

func (r *stateRelay) load(ctx context.Context, battleID string) lifecycle.Observer {
	o := r.target.Load()
	if o == nil {
		slog.WarnContext(ctx, "battle notification before gateway was ready", "battle", battleID)
		return nil
	}
	return *o
}

func (r *stateRelay) BattleStarted(ctx context.Context, b *battle.Battle) {
	if o := r.load(ctx, b.ID); o != nil {
		o.BattleStarted(ctx, b)
	}
}

func (r *stateRelay) StateChanged(ctx context.Context, st *battle.State) {
	if o := r.load(ctx, st.BattleID); o != nil {
		o.StateChanged(ctx, st)
	}
}

func (r *stateRelay) PlayerRejoined(ctx context.Context, st *battle.State, playerID string) {
	if o := r.load(ctx, st.BattleID); o != nil {
		o.PlayerRejoined(ctx, st, playerID)
	}
}

func (r *stateRelay) PlayerDisconnected(ctx context.Context, st *battle.State, playerID string) {
	if o := r.load(ctx, st.BattleID); o != nil {
		o.PlayerDisconnected(ctx, st, playerID)
	}
}
