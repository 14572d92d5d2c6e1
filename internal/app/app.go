// Package app wires configuration, the event router and the ledger store
// together and hosts the tank operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"multifluid/fluid"
	"multifluid/internal/config"
	"multifluid/internal/store/sqlite"
	"multifluid/ledger"
	"multifluid/logging"
	"multifluid/logging/sinks"
	"multifluid/logging/tanks"
	"multifluid/transfer"
)

// AnySlot selects type-addressed transfers.
const AnySlot = -1

var (
	// ErrExists is returned when creating a tank under a taken name.
	ErrExists = errors.New("ledger already exists")
	// ErrInvalidCapacity is returned when an imported snapshot has a missing
	// or non-positive capacity_per_slot.
	ErrInvalidCapacity = errors.New("snapshot capacity must be positive")
)

// Options carries dependencies that do not come from the environment.
type Options struct {
	Logger *zap.Logger
	// Console receives the console sink output. Defaults to stderr.
	Console io.Writer
	// Sinks are added next to the configured ones.
	Sinks []logging.NamedSink
}

// App owns the store and router for one CLI invocation.
type App struct {
	cfg    config.Config
	store  *sqlite.Store
	router *logging.Router
	pub    logging.Publisher
	names  *fluid.Names
	logger *zap.Logger
	tick   atomic.Uint64
}

// Tank is a stored ledger loaded into memory.
type Tank struct {
	Name   string
	Ledger *fluid.Tank
}

// Open builds an App from cfg.
func Open(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tag, err := cfg.Language()
	if err != nil {
		return nil, err
	}
	logCfg, err := cfg.Logging()
	if err != nil {
		return nil, err
	}

	named, err := configuredSinks(logCfg, logger, opts.Console)
	if err != nil {
		return nil, err
	}
	named = append(named, opts.Sinks...)
	fallback := zap.NewStdLog(logger.Named("logging"))
	router, err := logging.NewRouter(logCfg, nil, fallback, named)
	if err != nil {
		closeSinks(ctx, named)
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}

	store, err := sqlite.Open(ctx, cfg.StorePath)
	if err != nil {
		_ = router.Close(ctx)
		return nil, err
	}

	return &App{
		cfg:    cfg,
		store:  store,
		router: router,
		pub:    router,
		names:  fluid.NewNames(tag, nil),
		logger: logger,
	}, nil
}

func configuredSinks(cfg logging.Config, logger *zap.Logger, console io.Writer) ([]logging.NamedSink, error) {
	var named []logging.NamedSink
	for _, name := range cfg.EnabledSinks {
		switch name {
		case logging.SinkConsole:
			if console == nil {
				console = os.Stderr
			}
			named = append(named, logging.NamedSink{Name: name, Sink: sinks.NewConsole(console)})
		case logging.SinkJSON:
			file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				closeSinks(context.Background(), named)
				return nil, fmt.Errorf("open json log %s: %w", cfg.JSON.FilePath, err)
			}
			named = append(named, logging.NamedSink{Name: name, Sink: sinks.NewJSON(file, cfg.JSON.FlushInterval)})
		case logging.SinkZap:
			named = append(named, logging.NamedSink{Name: name, Sink: sinks.NewZap(logger)})
		}
	}
	return named, nil
}

// closeSinks releases sinks that never reached a router.
func closeSinks(ctx context.Context, named []logging.NamedSink) {
	for _, n := range named {
		if n.Sink != nil {
			_ = n.Sink.Close(ctx)
		}
	}
}

// Close flushes events and closes the store.
func (a *App) Close(ctx context.Context) error {
	routerErr := a.router.Close(ctx)
	if routerErr != nil {
		a.logger.Warn("failed to close logging router", zap.Error(routerErr))
	}
	return errors.Join(routerErr, a.store.Close())
}

// Names renders fluid display names in the configured locale.
func (a *App) Names() *fluid.Names {
	return a.names
}

// Config returns the configuration the app was opened with.
func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) nextTick() uint64 {
	return a.tick.Add(1)
}

// Create stores a new, locked tank. A non-positive capacity uses the
// configured default.
func (a *App) Create(ctx context.Context, name string, capacity int) (*Tank, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tank name is required")
	}
	if _, err := a.store.Load(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, err
	}
	if capacity <= 0 {
		capacity = a.cfg.CapacityPerSlot
	}
	tank := &Tank{Name: name, Ledger: fluid.NewTank(capacity)}
	tank.Ledger.SetVoidExcess(a.cfg.VoidExcess)
	if err := a.Save(ctx, tank); err != nil {
		return nil, err
	}
	a.logger.Debug("created tank", zap.String("tank", name), zap.Int("capacity", capacity))
	return tank, nil
}

// Load restores the named tank from the store. A snapshot that stops on a
// malformed entry still yields the slots read before it; the error is logged
// and published, not returned.
func (a *App) Load(ctx context.Context, name string) (*Tank, error) {
	state, err := a.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	tank := &Tank{Name: state.Name, Ledger: fluid.NewTank(0)}
	restored, restoreErr := tank.Ledger.FromSnapshot(state.Snapshot, fluid.Codec{})
	tank.Ledger.SetLock(state.Locked)
	tank.Ledger.SetVoidExcess(state.VoidExcess)
	tank.Ledger.SetSelectedIndex(state.Selected)

	payload := tanks.LedgerRestoredPayload{Capacity: tank.Ledger.Capacity(), Slots: restored}
	if restoreErr != nil {
		payload.Error = restoreErr.Error()
		a.logger.Warn("tank snapshot restore stopped early", zap.String("tank", name), zap.Error(restoreErr))
	}
	tanks.LedgerRestored(ctx, a.pub, a.nextTick(), logging.Ledger(state.Name), payload)
	return tank, nil
}

// Save writes the tank snapshot and flags to the store.
func (a *App) Save(ctx context.Context, tank *Tank) error {
	record, err := tank.Ledger.ToSnapshot(fluid.Codec{})
	if err != nil {
		return fmt.Errorf("snapshot tank %s: %w", tank.Name, err)
	}
	return a.store.Save(ctx, sqlite.State{
		Name:       tank.Name,
		Snapshot:   record,
		Locked:     tank.Ledger.Locked(),
		VoidExcess: tank.Ledger.VoidExcess(),
		Selected:   tank.Ledger.SelectedIndex(),
	})
}

// List returns the stored tank names.
func (a *App) List(ctx context.Context) ([]string, error) {
	return a.store.List(ctx)
}

// Delete removes a stored tank.
func (a *App) Delete(ctx context.Context, name string) error {
	return a.store.Delete(ctx, name)
}

// Push fills fluid into the tank, into slot unless it is AnySlot. Committed
// pushes are published.
func (a *App) Push(ctx context.Context, tank *Tank, id fluid.ID, slot, amount int, mode ledger.Mode) int {
	before := amountOf(tank.Ledger, id)
	var accepted int
	if slot == AnySlot {
		accepted = tank.Ledger.Push(id, amount, mode)
	} else {
		accepted = tank.Ledger.PushAt(id, slot, amount, mode)
	}
	if mode != ledger.Commit {
		return accepted
	}

	actor := logging.Ledger(tank.Name)
	if accepted == 0 {
		tanks.PushRejected(ctx, a.pub, a.nextTick(), actor, tanks.PushRejectedPayload{
			Fluid:     string(id),
			Requested: amount,
			Reason:    a.rejectReason(tank, id, slot, amount),
		}, nil)
		return 0
	}
	tanks.FluidPushed(ctx, a.pub, a.nextTick(), actor, tanks.FluidPushedPayload{
		Fluid:    string(id),
		Slot:     slotOf(tank.Ledger, id),
		Accepted: accepted,
		Stored:   amountOf(tank.Ledger, id) - before,
	}, nil)
	return accepted
}

func (a *App) rejectReason(tank *Tank, id fluid.ID, slot, amount int) string {
	stored := len(tank.Ledger.Slots())
	switch {
	case tank.Ledger.Locked():
		return "locked"
	case amount <= 0:
		return "nothing_requested"
	case slot != AnySlot && (slot < 0 || slot >= ledger.MaxSlots):
		return "invalid_slot"
	case slot != AnySlot && slot < stored:
		if s, _ := tank.Ledger.Slot(slot); s.Resource != id {
			return "slot_mismatch"
		}
		return "slot_full"
	case slot != AnySlot && tank.Ledger.Contains(id):
		return "duplicate_resource"
	case !tank.Ledger.Contains(id) && len(tank.Ledger.Slots()) >= ledger.MaxSlots:
		return "no_free_slot"
	default:
		return "full"
	}
}

// Pull drains fluid from the tank, from slot unless it is AnySlot. Committed
// pulls that deliver anything are published.
func (a *App) Pull(ctx context.Context, tank *Tank, id fluid.ID, slot, amount int, mode ledger.Mode) int {
	var delivered int
	if slot == AnySlot {
		delivered = tank.Ledger.Pull(id, amount, mode)
	} else {
		delivered = tank.Ledger.PullAt(id, slot, amount, mode)
	}
	if mode == ledger.Commit && delivered > 0 {
		tanks.FluidPulled(ctx, a.pub, a.nextTick(), logging.Ledger(tank.Name), tanks.FluidPulledPayload{
			Fluid:     string(id),
			Delivered: delivered,
			Drained:   !tank.Ledger.Contains(id),
		}, nil)
	}
	return delivered
}

// SetLock locks or unlocks the tank and publishes the change.
func (a *App) SetLock(ctx context.Context, tank *Tank, locked bool) {
	if tank.Ledger.Locked() == locked {
		return
	}
	tank.Ledger.SetLock(locked)
	tanks.LockChanged(ctx, a.pub, a.nextTick(), logging.Ledger(tank.Name), tanks.LockChangedPayload{Locked: locked})
}

// Move runs a two-phase transfer between two tanks.
func (a *App) Move(ctx context.Context, src, dst *Tank, id fluid.ID, amount int, mode ledger.Mode) transfer.Result {
	return transfer.Move(ctx,
		transfer.Endpoint[fluid.ID]{ID: src.Name, Ledger: src.Ledger},
		transfer.Endpoint[fluid.ID]{ID: dst.Name, Ledger: dst.Ledger},
		id, amount, mode,
		transfer.Options[fluid.ID]{Publisher: a.pub, Tick: a.nextTick(), Name: fluid.ID.String},
	)
}

// Import replaces the tank contents with record and reports how many slots
// were restored. Unlike Load, a malformed entry or a non-positive capacity is
// returned as an error so the caller can refuse to save the import.
func (a *App) Import(ctx context.Context, tank *Tank, record ledger.Record) (int, error) {
	restored, err := tank.Ledger.FromSnapshot(record, fluid.Codec{})
	if err == nil && tank.Ledger.Capacity() <= 0 {
		err = fmt.Errorf("%w: %s is %d", ErrInvalidCapacity, ledger.CapacityKey, tank.Ledger.Capacity())
	}
	payload := tanks.LedgerRestoredPayload{Capacity: tank.Ledger.Capacity(), Slots: restored}
	if err != nil {
		payload.Error = err.Error()
	}
	tanks.LedgerRestored(ctx, a.pub, a.nextTick(), logging.Ledger(tank.Name), payload)
	return restored, err
}

// Describe renders the tank diagnostics with localized fluid names.
func (a *App) Describe(tank *Tank) []string {
	return tank.Ledger.Describe(a.names.Name)
}

func amountOf(tank *fluid.Tank, id fluid.ID) int {
	for _, slot := range tank.Slots() {
		if slot.Resource == id {
			return slot.Amount
		}
	}
	return 0
}

func slotOf(tank *fluid.Tank, id fluid.ID) int {
	for i, slot := range tank.Slots() {
		if slot.Resource == id {
			return i
		}
	}
	return -1
}
