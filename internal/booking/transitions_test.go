package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []BookingStatus{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow}

	allowed := map[BookingStatus]map[BookingStatus]bool{
		StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
		StatusConfirmed: {StatusCompleted: true, StatusNoShow: true, StatusCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			got := CanTransition(from, to)
			want := allowed[from][to]
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusConfirmed))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusNoShow))
}

func TestConfirmationCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewConfirmationCode()
		assert.NoError(t, err)
		assert.Len(t, code, 8)
		for _, c := range code {
			ok := (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			assert.True(t, ok, "unexpected character %q in %s", c, code)
		}
		seen[code] = true
	}
	// 200 draws from a 36^8 space colliding would point at a broken RNG.
	assert.Greater(t, len(seen), 190)
}
