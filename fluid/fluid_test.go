package fluid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"multifluid/ledger"
)

func TestParse(t *testing.T) {
	id, err := Parse("  Molten.Iron ")
	require.NoError(t, err)
	assert.Equal(t, ID("molten.iron"), id)

	for _, raw := range []string{"", "   ", "water!", "hot water"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidID, "%q", raw)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tank := NewTank(8000, Stack{Resource: "water", Amount: 8000}, Stack{Resource: "molten.iron", Amount: 144})
	record, err := tank.ToSnapshot(Codec{})
	require.NoError(t, err)

	entry, ok := record.Sub("1")
	require.True(t, ok)
	assert.Equal(t, ledger.Record{"FluidName": "molten.iron", "Amount": 144}, entry)

	restored := NewTank(0)
	n, err := restored.FromSnapshot(record, Codec{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tank.SetLock(false)
	restored.SetLock(false)
	assert.Equal(t, tank.Slots(), restored.Slots())
}

func TestCodecRejectsBadEntries(t *testing.T) {
	_, err := Codec{}.EncodeSlot(Stack{Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = Codec{}.DecodeSlot(ledger.Record{"Amount": 1})
	assert.Error(t, err)

	_, err = Codec{}.DecodeSlot(ledger.Record{"FluidName": "bad name", "Amount": 1})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = Codec{}.DecodeSlot(ledger.Record{"FluidName": "water"})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	names := NewNames(language.English, map[ID]string{"water": "Fresh Water"})

	assert.Equal(t, "Fresh Water", names.Name("water"))
	assert.Equal(t, "IC2 Coolant", names.Name("ic2coolant"))
	assert.Equal(t, "Molten Iron", names.Name("molten.iron"))
	assert.Equal(t, "Liquid Air", names.Name("liquid_air"))
	assert.Equal(t, language.English, names.Language())
}

func TestDescribeWithNames(t *testing.T) {
	tank := NewTank(1000, Stack{Resource: "liquid_air", Amount: 250})
	names := NewNames(language.English, nil)

	assert.Equal(t, []string{
		"Stored Fluids:",
		"0 - Liquid Air: 250L (25%)",
	}, tank.Describe(names.Name))
}
