package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multifluid/ledger"
	"multifluid/logging/sinks"
	"multifluid/logging/tanks"
)

func tank(capacity int, slots ...ledger.Slot[string]) *ledger.Ledger[string] {
	l := ledger.New(capacity, slots...)
	l.SetLock(false)
	return l
}

func endpoints(src, dst *ledger.Ledger[string]) (Endpoint[string], Endpoint[string]) {
	return Endpoint[string]{ID: "src", Ledger: src}, Endpoint[string]{ID: "dst", Ledger: dst}
}

func fixedTrace() string { return "trace-1" }

func TestMoveCommitsAgreedAmount(t *testing.T) {
	src := tank(1000, ledger.Slot[string]{Resource: "water", Amount: 800})
	dst := tank(500, ledger.Slot[string]{Resource: "water", Amount: 200})
	memory := sinks.NewMemory()
	from, to := endpoints(src, dst)

	result := Move(context.Background(), from, to, "water", 600, ledger.Commit, Options[string]{
		Publisher:  memory,
		Tick:       42,
		NewTraceID: fixedTrace,
	})

	assert.Equal(t, Result{Moved: 300, Stored: 300, TraceID: "trace-1"}, result)
	assert.Equal(t, []ledger.Slot[string]{{Resource: "water", Amount: 500}}, src.Slots())
	assert.Equal(t, []ledger.Slot[string]{{Resource: "water", Amount: 500}}, dst.Slots())

	pulled := memory.OfType(tanks.EventFluidPulled)
	require.Len(t, pulled, 1)
	assert.Equal(t, "trace-1", pulled[0].TraceID)
	assert.Equal(t, uint64(42), pulled[0].Tick)
	assert.Equal(t, tanks.FluidPulledPayload{Fluid: "water", Delivered: 300}, pulled[0].Payload)

	pushed := memory.OfType(tanks.EventFluidPushed)
	require.Len(t, pushed, 1)
	assert.Equal(t, tanks.FluidPushedPayload{Fluid: "water", Slot: 0, Accepted: 300, Stored: 300}, pushed[0].Payload)
}

func TestMoveSimulateLeavesLedgersAlone(t *testing.T) {
	src := tank(1000, ledger.Slot[string]{Resource: "water", Amount: 800})
	dst := tank(500)
	memory := sinks.NewMemory()
	from, to := endpoints(src, dst)

	result := Move(context.Background(), from, to, "water", 600, ledger.Simulate, Options[string]{Publisher: memory, NewTraceID: fixedTrace})

	assert.Equal(t, 500, result.Moved)
	assert.Equal(t, 500, result.Stored)
	assert.Equal(t, []ledger.Slot[string]{{Resource: "water", Amount: 800}}, src.Slots())
	assert.Empty(t, dst.Slots())
	assert.Empty(t, memory.Events())
}

func TestMoveIntoVoidingTankDestroysExcess(t *testing.T) {
	src := tank(1000, ledger.Slot[string]{Resource: "water", Amount: 800})
	dst := tank(500, ledger.Slot[string]{Resource: "water", Amount: 400})
	dst.SetVoidExcess(true)
	from, to := endpoints(src, dst)

	simulated := Move(context.Background(), from, to, "water", 800, ledger.Simulate, Options[string]{NewTraceID: fixedTrace})
	committed := Move(context.Background(), from, to, "water", 800, ledger.Commit, Options[string]{NewTraceID: fixedTrace})

	assert.Equal(t, simulated, committed)
	assert.Equal(t, 800, committed.Moved)
	assert.Equal(t, 100, committed.Stored)
	assert.Empty(t, src.Slots())
	assert.Equal(t, []ledger.Slot[string]{{Resource: "water", Amount: 500}}, dst.Slots())
}

func TestMoveFailures(t *testing.T) {
	tests := []struct {
		name   string
		build  func() (src, dst *ledger.Ledger[string])
		amount int
		reason string
	}{
		{
			name:   "nothing requested",
			build:  func() (*ledger.Ledger[string], *ledger.Ledger[string]) { return tank(10), tank(10) },
			amount: 0,
			reason: ReasonNothingRequested,
		},
		{
			name: "same ledger",
			build: func() (*ledger.Ledger[string], *ledger.Ledger[string]) {
				l := tank(10, ledger.Slot[string]{Resource: "water", Amount: 5})
				return l, l
			},
			amount: 5,
			reason: ReasonSameLedger,
		},
		{
			name:   "missing ledger",
			build:  func() (*ledger.Ledger[string], *ledger.Ledger[string]) { return tank(10), nil },
			amount: 5,
			reason: ReasonMissingLedger,
		},
		{
			name: "source locked",
			build: func() (*ledger.Ledger[string], *ledger.Ledger[string]) {
				return ledger.New(10, ledger.Slot[string]{Resource: "water", Amount: 5}), tank(10)
			},
			amount: 5,
			reason: ReasonSourceLocked,
		},
		{
			name: "destination locked",
			build: func() (*ledger.Ledger[string], *ledger.Ledger[string]) {
				return tank(10, ledger.Slot[string]{Resource: "water", Amount: 5}), ledger.New[string](10)
			},
			amount: 5,
			reason: ReasonDestinationLocked,
		},
		{
			name:   "source empty",
			build:  func() (*ledger.Ledger[string], *ledger.Ledger[string]) { return tank(10), tank(10) },
			amount: 5,
			reason: ReasonSourceEmpty,
		},
		{
			name: "destination full",
			build: func() (*ledger.Ledger[string], *ledger.Ledger[string]) {
				return tank(10, ledger.Slot[string]{Resource: "water", Amount: 5}),
					tank(10, ledger.Slot[string]{Resource: "water", Amount: 10})
			},
			amount: 5,
			reason: ReasonDestinationFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := tt.build()
			memory := sinks.NewMemory()
			from, to := endpoints(src, dst)

			result := Move(context.Background(), from, to, "water", tt.amount, ledger.Commit, Options[string]{Publisher: memory, NewTraceID: fixedTrace})

			assert.Zero(t, result.Moved)
			assert.Equal(t, tt.reason, result.Reason)
			failed := memory.OfType(tanks.EventTransferFailed)
			require.Len(t, failed, 1)
			assert.Equal(t, "trace-1", failed[0].TraceID)
			assert.Len(t, failed[0].Targets, 2)
			payload, ok := failed[0].Payload.(tanks.TransferFailedPayload)
			require.True(t, ok)
			assert.Equal(t, tt.reason, payload.Reason)
		})
	}
}

func TestMoveGeneratesTraceIDs(t *testing.T) {
	src := tank(10, ledger.Slot[string]{Resource: "water", Amount: 5})
	dst := tank(10)
	from, to := endpoints(src, dst)

	first := Move(context.Background(), from, to, "water", 1, ledger.Commit, Options[string]{})
	second := Move(context.Background(), from, to, "water", 1, ledger.Commit, Options[string]{})

	assert.NotEmpty(t, first.TraceID)
	assert.NotEqual(t, first.TraceID, second.TraceID)
}
