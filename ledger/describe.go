package ledger

import (
	"fmt"
	"math"
)

// DescribeHeader is the first line of Describe output.
const DescribeHeader = "Stored Fluids:"

// Describe renders one diagnostic line per stored slot below DescribeHeader.
// It reads the stored contents directly and is not hidden by the lock. A nil
// name func falls back to fmt's default formatting of the resource.
func (l *Ledger[K]) Describe(name func(K) string) []string {
	lines := make([]string, 0, len(l.slots)+1)
	lines = append(lines, DescribeHeader)
	for i, slot := range l.slots {
		label := ""
		if name != nil {
			label = name(slot.Resource)
		} else {
			label = fmt.Sprint(slot.Resource)
		}
		lines = append(lines, fmt.Sprintf("%d - %s: %dL (%d%%)", i, label, slot.Amount, FillPercent(slot.Amount, l.capacity)))
	}
	return lines
}

// FillPercent returns 100*amount/capacity rounded half up, using 32-bit float
// division so the figures match what the tank overlay has always shown.
func FillPercent(amount, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	ratio := float32(100) * float32(amount) / float32(capacity)
	return int(math.Floor(float64(ratio) + 0.5))
}
