package ledger

// newSlot is returned by a resolver when the transfer targets a slot that does
// not exist yet.
const newSlot = -1

type direction uint8

const (
	inbound direction = iota
	outbound
)

// resolver picks the slot a transfer operates on. It returns newSlot when an
// inbound transfer may open a slot and false when the transfer is refused.
type resolver[K comparable] func(resource K, dir direction) (int, bool)

// Push adds up to amount of resource to the slot holding it, opening a new
// slot when the resource is not stored and the table has room. It returns
// the accepted amount, which is the full request when void excess is on.
func (l *Ledger[K]) Push(resource K, amount int, mode Mode) int {
	return l.transfer(inbound, resource, amount, mode, l.byResource)
}

// PushAt adds up to amount of resource to the slot at index. The slot must
// hold the same resource; an unoccupied index opens a new slot at the end of
// the table when there is room and the resource is not stored elsewhere.
func (l *Ledger[K]) PushAt(resource K, index, amount int, mode Mode) int {
	return l.transfer(inbound, resource, amount, mode, l.atIndex(index))
}

// Pull removes up to amount of resource and returns the delivered amount. A
// committed pull that empties a slot removes it.
func (l *Ledger[K]) Pull(resource K, amount int, mode Mode) int {
	return l.transfer(outbound, resource, amount, mode, l.byResource)
}

// PullAt removes up to amount of resource from the slot at index. Unoccupied
// or mismatched slots deliver nothing.
func (l *Ledger[K]) PullAt(resource K, index, amount int, mode Mode) int {
	return l.transfer(outbound, resource, amount, mode, l.atIndex(index))
}

// CouldPush reports whether a push of amount would store anything. With void
// excess on, a push into an existing slot is always accepted.
func (l *Ledger[K]) CouldPush(resource K, amount int) bool {
	if l.locked {
		return false
	}
	index, ok := l.byResource(resource, inbound)
	if !ok {
		return false
	}
	if index == newSlot {
		return min(l.capacity, amount) > 0
	}
	if l.voidExcess {
		return true
	}
	return min(l.capacity-l.slots[index].Amount, amount) > 0
}

func (l *Ledger[K]) transfer(dir direction, resource K, amount int, mode Mode, resolve resolver[K]) int {
	if l.locked || amount <= 0 {
		return 0
	}
	index, ok := resolve(resource, dir)
	if !ok {
		return 0
	}
	if dir == outbound {
		return l.drain(index, amount, mode)
	}
	return l.fill(resource, index, amount, mode)
}

func (l *Ledger[K]) fill(resource K, index, amount int, mode Mode) int {
	stored := 0
	if index != newSlot {
		stored = l.slots[index].Amount
	}
	fit := max(min(l.capacity-stored, amount), 0)
	if mode == Commit && fit > 0 {
		if index == newSlot {
			l.slots = append(l.slots, Slot[K]{Resource: resource, Amount: fit})
		} else {
			l.slots[index].Amount += fit
		}
	}
	if l.voidExcess {
		return amount
	}
	return fit
}

func (l *Ledger[K]) drain(index, amount int, mode Mode) int {
	delivered := min(amount, l.slots[index].Amount)
	if mode != Commit {
		return delivered
	}
	l.slots[index].Amount -= delivered
	if l.slots[index].Amount == 0 {
		l.slots = append(l.slots[:index], l.slots[index+1:]...)
	}
	return delivered
}

func (l *Ledger[K]) byResource(resource K, dir direction) (int, bool) {
	if index := l.indexOf(resource); index >= 0 {
		return index, true
	}
	if dir == outbound || len(l.slots) >= MaxSlots {
		return 0, false
	}
	return newSlot, true
}

func (l *Ledger[K]) atIndex(index int) resolver[K] {
	return func(resource K, dir direction) (int, bool) {
		if index < 0 || index >= MaxSlots {
			return 0, false
		}
		if index < len(l.slots) {
			return index, l.slots[index].Resource == resource
		}
		if dir == outbound || len(l.slots) >= MaxSlots || l.indexOf(resource) >= 0 {
			return 0, false
		}
		return newSlot, true
	}
}
