// Package ledger implements the accounting core of a multi-fluid tank: a
// bounded, ordered table of (resource, amount) slots that share one per-slot
// capacity.
//
// Every transfer can run in Simulate mode, which reports exactly what the
// matching Commit call would move without touching any state. Callers use
// that to coordinate transfers across several ledgers. A Ledger performs no
// locking of its own; the owner serializes access.
package ledger

// MaxSlots bounds the number of distinct resources a ledger can hold.
const MaxSlots = 25

// NoSelection is the selector value used when no resource is selected.
const NoSelection int8 = -1

// Mode controls whether a transfer mutates the ledger.
type Mode uint8

const (
	// Simulate computes the result of a transfer without applying it.
	Simulate Mode = iota
	// Commit applies the transfer.
	Commit
)

func (m Mode) String() string {
	if m == Commit {
		return "commit"
	}
	return "simulate"
}

// Slot is one stored resource and its amount.
type Slot[K comparable] struct {
	Resource K
	Amount   int
}

// Ledger stores up to MaxSlots distinct resources, each bounded by the same
// capacity. The zero value is not usable; construct ledgers with New.
type Ledger[K comparable] struct {
	slots      []Slot[K]
	capacity   int
	locked     bool
	voidExcess bool
	selected   int8
}

// New returns a locked ledger holding copies of the initial slots. The caller
// guarantees the initial slots are distinct and within capacity; entries past
// MaxSlots and entries with a non-positive amount are ignored.
func New[K comparable](capacity int, initial ...Slot[K]) *Ledger[K] {
	l := &Ledger[K]{
		slots:    make([]Slot[K], 0, MaxSlots),
		capacity: capacity,
		locked:   true,
		selected: NoSelection,
	}
	for _, slot := range initial {
		if len(l.slots) == MaxSlots {
			break
		}
		if slot.Amount <= 0 {
			continue
		}
		l.slots = append(l.slots, slot)
	}
	return l
}

// SetLock hides (true) or exposes (false) the ledger contents. Stored slots are
// kept unchanged while locked.
func (l *Ledger[K]) SetLock(locked bool) {
	l.locked = locked
}

// Locked reports whether the ledger is locked.
func (l *Ledger[K]) Locked() bool {
	return l.locked
}

// SetVoidExcess toggles whether pushes report overflow as accepted.
func (l *Ledger[K]) SetVoidExcess(void bool) {
	l.voidExcess = void
}

// VoidExcess reports whether pushes discard overflow.
func (l *Ledger[K]) VoidExcess() bool {
	return l.voidExcess
}

// SetSelectedIndex stores the selector chosen by an external controller. The
// value is not checked against the stored slots.
func (l *Ledger[K]) SetSelectedIndex(index int8) {
	l.selected = index
}

// SelectedIndex returns the stored selector, or NoSelection.
func (l *Ledger[K]) SelectedIndex() int8 {
	return l.selected
}

// Capacity returns the per-slot capacity. It is not affected by the lock.
func (l *Ledger[K]) Capacity() int {
	return l.capacity
}

// Contains reports whether an unlocked ledger stores the resource.
func (l *Ledger[K]) Contains(resource K) bool {
	return !l.locked && l.indexOf(resource) >= 0
}

// Slots returns a copy of the stored slots in insertion order, or an empty
// slice when locked.
func (l *Ledger[K]) Slots() []Slot[K] {
	if l.locked {
		return []Slot[K]{}
	}
	copied := make([]Slot[K], len(l.slots))
	copy(copied, l.slots)
	return copied
}

// Slot returns a copy of the slot at index. It reports false when the ledger
// is locked, the index is outside [0, MaxSlots) or nothing is stored there.
func (l *Ledger[K]) Slot(index int) (Slot[K], bool) {
	if l.locked || len(l.slots) == 0 || index < 0 || index >= MaxSlots {
		return Slot[K]{}, false
	}
	if index >= len(l.slots) {
		return Slot[K]{}, false
	}
	return l.slots[index], true
}

func (l *Ledger[K]) indexOf(resource K) int {
	for i := range l.slots {
		if l.slots[i].Resource == resource {
			return i
		}
	}
	return -1
}
