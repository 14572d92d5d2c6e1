// Package fluid provides the resource identity stored in tank ledgers and the
// snapshot codec for it.
package fluid

import (
	"errors"
	"fmt"
	"strings"

	"multifluid/ledger"
)

// ID identifies a fluid kind, for example "water" or "molten.iron".
type ID string

// Stack is a fluid and an amount, the slot type of a tank ledger.
type Stack = ledger.Slot[ID]

// Tank is a ledger keyed by fluid.
type Tank = ledger.Ledger[ID]

// NewTank returns a locked tank ledger.
func NewTank(capacity int, initial ...Stack) *Tank {
	return ledger.New(capacity, initial...)
}

var (
	// ErrInvalidID is returned for empty or malformed fluid names.
	ErrInvalidID = errors.New("fluid: invalid fluid id")
)

// Parse normalizes a user supplied fluid name. Names are lower case and may
// contain letters, digits, '_', '-' and '.'.
func Parse(raw string) (ID, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidID)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidID, raw, r)
		}
	}
	return ID(name), nil
}

func (id ID) String() string {
	return string(id)
}
