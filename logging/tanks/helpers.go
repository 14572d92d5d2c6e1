package tanks

import (
	"context"

	"multifluid/logging"
)

const (
	// EventFluidPushed is emitted after fluid is committed into a tank.
	EventFluidPushed logging.EventType = "tanks.fluid_pushed"
	// EventFluidPulled is emitted after fluid is committed out of a tank.
	EventFluidPulled logging.EventType = "tanks.fluid_pulled"
	// EventPushRejected is emitted when a tank accepts none of a push.
	EventPushRejected logging.EventType = "tanks.push_rejected"
	// EventTransferFailed is emitted when a move between tanks moves nothing.
	EventTransferFailed logging.EventType = "tanks.transfer_failed"
	// EventLedgerRestored is emitted after a tank is restored from a snapshot.
	EventLedgerRestored logging.EventType = "tanks.ledger_restored"
	// EventLockChanged is emitted when a tank is locked or unlocked.
	EventLockChanged logging.EventType = "tanks.lock_changed"
)

// FluidPushedPayload describes a committed push. Accepted is what the tank
// reported; Stored is what it actually holds more of, which differs when
// excess is voided.
type FluidPushedPayload struct {
	Fluid    string `json:"fluid"`
	Slot     int    `json:"slot"`
	Accepted int    `json:"accepted"`
	Stored   int    `json:"stored"`
}

// FluidPulledPayload describes a committed pull.
type FluidPulledPayload struct {
	Fluid     string `json:"fluid"`
	Delivered int    `json:"delivered"`
	Drained   bool   `json:"drained,omitempty"`
}

// PushRejectedPayload describes a push the tank refused.
type PushRejectedPayload struct {
	Fluid     string `json:"fluid"`
	Requested int    `json:"requested"`
	Reason    string `json:"reason"`
}

// TransferFailedPayload describes a move that could not proceed.
type TransferFailedPayload struct {
	Fluid     string `json:"fluid"`
	Requested int    `json:"requested"`
	Reason    string `json:"reason"`
}

// LedgerRestoredPayload describes a snapshot restore.
type LedgerRestoredPayload struct {
	Capacity int    `json:"capacity"`
	Slots    int    `json:"slots"`
	Error    string `json:"error,omitempty"`
}

// LockChangedPayload describes a lock toggle.
type LockChangedPayload struct {
	Locked bool `json:"locked"`
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryLedger
	pub.Publish(ctx, event)
}

// FluidPushed publishes a committed push.
func FluidPushed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FluidPushedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventFluidPushed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
		Extra:    extra,
	})
}

// FluidPulled publishes a committed pull.
func FluidPulled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FluidPulledPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventFluidPulled,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
		Extra:    extra,
	})
}

// PushRejected publishes a refused push.
func PushRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PushRejectedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventPushRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Payload:  payload,
		Extra:    extra,
	})
}

// TransferFailed publishes a move that moved nothing. The source and
// destination tanks are the event targets.
func TransferFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, traceID string, payload TransferFailedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventTransferFailed,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityWarn,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// LedgerRestored publishes a snapshot restore. Restores that stopped on a
// malformed entry are reported as errors.
func LedgerRestored(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload LedgerRestoredPayload) {
	severity := logging.SeverityInfo
	if payload.Error != "" {
		severity = logging.SeverityError
	}
	publish(ctx, pub, logging.Event{
		Type:     EventLedgerRestored,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Payload:  payload,
	})
}

// LockChanged publishes a lock toggle.
func LockChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload LockChangedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventLockChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}
