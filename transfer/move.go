// Package transfer moves resources between ledgers with a two-phase protocol:
// every participant is asked in Simulate mode first and the move is committed
// only for the amount all of them agree on. Ledgers do not lock themselves, so
// the caller must hold whatever lock guards both ledgers for the whole call.
package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"multifluid/ledger"
	"multifluid/logging"
	"multifluid/logging/tanks"
)

// Reasons reported when a move does not happen.
const (
	ReasonSourceEmpty       = "source_empty"
	ReasonSourceLocked      = "source_locked"
	ReasonDestinationFull   = "destination_full"
	ReasonDestinationLocked = "destination_locked"
	ReasonSameLedger        = "same_ledger"
	ReasonMissingLedger     = "missing_ledger"
	ReasonNothingRequested  = "nothing_requested"
)

// Endpoint names a ledger taking part in a move.
type Endpoint[K comparable] struct {
	ID     string
	Ledger *ledger.Ledger[K]
}

// Options tune how a move reports itself.
type Options[K comparable] struct {
	Publisher logging.Publisher
	Tick      uint64
	// Name renders a resource for event payloads. Defaults to fmt.Sprint.
	Name func(K) string
	// NewTraceID overrides trace id generation.
	NewTraceID func() string
}

// Result describes a move. Moved is what left the source; Stored is what the
// destination kept, which is less than Moved when it voids excess.
type Result struct {
	Moved   int
	Stored  int
	TraceID string
	Reason  string
}

// Move transfers up to amount of resource from src to dst. In Simulate mode
// nothing changes and no events are published.
func Move[K comparable](ctx context.Context, src, dst Endpoint[K], resource K, amount int, mode ledger.Mode, opts Options[K]) Result {
	name := opts.Name
	if name == nil {
		name = func(resource K) string { return fmt.Sprint(resource) }
	}
	newTrace := opts.NewTraceID
	if newTrace == nil {
		newTrace = uuid.NewString
	}
	result := Result{TraceID: newTrace()}
	pub := logging.WithTrace(opts.Publisher, result.TraceID)

	fail := func(reason string) Result {
		result.Reason = reason
		if mode == ledger.Commit {
			tanks.TransferFailed(ctx, pub, opts.Tick, logging.Ledger(src.ID),
				[]logging.EntityRef{logging.Ledger(src.ID), logging.Ledger(dst.ID)}, result.TraceID,
				tanks.TransferFailedPayload{Fluid: name(resource), Requested: amount, Reason: reason})
		}
		return result
	}

	switch {
	case amount <= 0:
		return fail(ReasonNothingRequested)
	case src.Ledger == nil || dst.Ledger == nil:
		return fail(ReasonMissingLedger)
	case src.Ledger == dst.Ledger:
		return fail(ReasonSameLedger)
	case src.Ledger.Locked():
		return fail(ReasonSourceLocked)
	case dst.Ledger.Locked():
		return fail(ReasonDestinationLocked)
	}

	available := src.Ledger.Pull(resource, amount, ledger.Simulate)
	if available == 0 {
		return fail(ReasonSourceEmpty)
	}
	accepted := dst.Ledger.Push(resource, available, ledger.Simulate)
	if accepted == 0 {
		return fail(ReasonDestinationFull)
	}
	stored := storedAmount(dst.Ledger, resource, accepted)

	if mode != ledger.Commit {
		result.Moved, result.Stored = accepted, stored
		return result
	}

	before := amountOf(dst.Ledger, resource)
	result.Moved = src.Ledger.Pull(resource, accepted, ledger.Commit)
	dst.Ledger.Push(resource, result.Moved, ledger.Commit)
	result.Stored = amountOf(dst.Ledger, resource) - before

	tanks.FluidPulled(ctx, pub, opts.Tick, logging.Ledger(src.ID), tanks.FluidPulledPayload{
		Fluid:     name(resource),
		Delivered: result.Moved,
		Drained:   !src.Ledger.Contains(resource),
	}, nil)
	tanks.FluidPushed(ctx, pub, opts.Tick, logging.Ledger(dst.ID), tanks.FluidPushedPayload{
		Fluid:    name(resource),
		Slot:     slotOf(dst.Ledger, resource),
		Accepted: result.Moved,
		Stored:   result.Stored,
	}, nil)
	return result
}

// storedAmount is what a push of accepted would really add to l. Void excess
// makes Push report more than the tank keeps.
func storedAmount[K comparable](l *ledger.Ledger[K], resource K, accepted int) int {
	if !l.VoidExcess() {
		return accepted
	}
	return min(accepted, l.Capacity()-amountOf(l, resource))
}

func amountOf[K comparable](l *ledger.Ledger[K], resource K) int {
	for _, slot := range l.Slots() {
		if slot.Resource == resource {
			return slot.Amount
		}
	}
	return 0
}

func slotOf[K comparable](l *ledger.Ledger[K], resource K) int {
	for i, slot := range l.Slots() {
		if slot.Resource == resource {
			return i
		}
	}
	return -1
}
