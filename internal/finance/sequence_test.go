package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopePrefix(t *testing.T) {
	assert.Equal(t, "VEN-2026-", ScopePrefix(KindSale, 2026))
	assert.Equal(t, "COM-2026-", ScopePrefix(KindPurchase, 2026))
	assert.Equal(t, "COT-2026-", ScopePrefix(KindQuotation, 2026))
}

func TestNextNumber(t *testing.T) {
	cases := []struct {
		name string
		last string
		want string
	}{
		{"empty scope starts at one", "", "VEN-2026-001"},
		{"increments", "VEN-2026-007", "VEN-2026-008"},
		{"pad boundary", "VEN-2026-099", "VEN-2026-100"},
		{"grows past the pad", "VEN-2026-999", "VEN-2026-1000"},
		{"keeps counting after the pad", "VEN-2026-1042", "VEN-2026-1043"},
		{"garbage tail restarts", "VEN-2026-abc", "VEN-2026-001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextNumber(KindSale, 2026, tc.last))
		})
	}
}

func TestNumberOrderingIsLengthThenLex(t *testing.T) {
	// The repositories order candidates by length before lexicographic
	// comparison so VEN-2026-1000 beats VEN-2026-999.
	assert.True(t, numberLess("VEN-2026-999", "VEN-2026-1000"))
	assert.True(t, numberLess("VEN-2026-001", "VEN-2026-002"))
	assert.False(t, numberLess("VEN-2026-100", "VEN-2026-099"))
}
