package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// CapacityKey is the snapshot key holding the per-slot capacity. Slot entries
// are stored under their decimal index ("0", "1", ...).
const CapacityKey = "capacity_per_slot"

var (
	// ErrNilCodec is returned when a snapshot operation has no codec.
	ErrNilCodec = errors.New("ledger: snapshot codec is required")
	// ErrMalformedEntry marks the snapshot entry that stopped a restore.
	ErrMalformedEntry = errors.New("ledger: malformed snapshot entry")
)

// Record is a host-neutral structured mapping used for snapshots. Values are
// ints, strings, bools or nested records. Records decoded from JSON or YAML
// are accepted as well; the accessors normalize their number and map shapes.
type Record map[string]any

// Codec encodes a single slot into a snapshot entry and back. The encoding of
// the resource itself belongs to the host.
type Codec[K comparable] interface {
	EncodeSlot(Slot[K]) (Record, error)
	DecodeSlot(Record) (Slot[K], error)
}

// Int returns the integer stored under key.
func (r Record) Int(key string) (int, bool) {
	value, ok := r[key]
	if !ok {
		return 0, false
	}
	return intFromAny(value)
}

// String returns the string stored under key.
func (r Record) String(key string) (string, bool) {
	value, ok := r[key].(string)
	return value, ok
}

// Sub returns the nested record stored under key.
func (r Record) Sub(key string) (Record, bool) {
	switch value := r[key].(type) {
	case Record:
		return value, value != nil
	case map[string]any:
		return Record(value), value != nil
	default:
		return nil, false
	}
}

// ToSnapshot encodes the capacity and every stored slot. The snapshot holds
// the real contents even while the ledger is locked.
func (l *Ledger[K]) ToSnapshot(codec Codec[K]) (Record, error) {
	if codec == nil {
		return nil, ErrNilCodec
	}
	record := make(Record, len(l.slots)+1)
	record[CapacityKey] = l.capacity
	for i, slot := range l.slots {
		entry, err := codec.EncodeSlot(slot)
		if err != nil {
			return nil, fmt.Errorf("encode slot %d: %w", i, err)
		}
		record[strconv.Itoa(i)] = entry
	}
	return record, nil
}

// FromSnapshot replaces the capacity and slots with the snapshot contents and
// returns the number of restored slots. Entries are read in order starting at
// "0" until one is missing or MaxSlots entries were read. An entry that does
// not decode into a valid slot stops the restore; the slots before it are kept
// and the returned error wraps ErrMalformedEntry. Lock, void excess and the
// selector are left as they are.
func (l *Ledger[K]) FromSnapshot(record Record, codec Codec[K]) (int, error) {
	if codec == nil {
		return 0, ErrNilCodec
	}
	capacity, _ := record.Int(CapacityKey)
	l.capacity = capacity
	l.slots = make([]Slot[K], 0, MaxSlots)

	for i := 0; i < MaxSlots; i++ {
		entry, ok := record.Sub(strconv.Itoa(i))
		if !ok {
			break
		}
		slot, err := codec.DecodeSlot(entry)
		if err != nil {
			return len(l.slots), fmt.Errorf("%w %d: %w", ErrMalformedEntry, i, err)
		}
		if slot.Amount <= 0 || slot.Amount > l.capacity {
			return len(l.slots), fmt.Errorf("%w %d: amount %d outside [1, %d]", ErrMalformedEntry, i, slot.Amount, l.capacity)
		}
		if l.indexOf(slot.Resource) >= 0 {
			return len(l.slots), fmt.Errorf("%w %d: duplicate resource", ErrMalformedEntry, i)
		}
		l.slots = append(l.slots, slot)
	}
	return len(l.slots), nil
}

func intFromAny(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case float32:
		return intFromAny(float64(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
