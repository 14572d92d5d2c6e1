package fluid

import (
	"fmt"

	"multifluid/ledger"
)

const (
	nameKey   = "FluidName"
	amountKey = "Amount"
)

// Codec encodes tank slots as {"FluidName": id, "Amount": n} entries.
type Codec struct{}

var _ ledger.Codec[ID] = Codec{}

// EncodeSlot satisfies ledger.Codec.
func (Codec) EncodeSlot(slot Stack) (ledger.Record, error) {
	if slot.Resource == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidID)
	}
	return ledger.Record{
		nameKey:   string(slot.Resource),
		amountKey: slot.Amount,
	}, nil
}

// DecodeSlot satisfies ledger.Codec.
func (Codec) DecodeSlot(record ledger.Record) (Stack, error) {
	raw, ok := record.String(nameKey)
	if !ok {
		return Stack{}, fmt.Errorf("missing %s", nameKey)
	}
	id, err := Parse(raw)
	if err != nil {
		return Stack{}, err
	}
	amount, ok := record.Int(amountKey)
	if !ok {
		return Stack{}, fmt.Errorf("missing %s for %s", amountKey, id)
	}
	return Stack{Resource: id, Amount: amount}, nil
}
