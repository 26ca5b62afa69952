package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 9, 10, h, m, 0, 0, time.UTC)
	}

	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd time.Time
		want                           bool
	}{
		{"disjoint", at(9, 0), at(10, 0), at(11, 0), at(12, 0), false},
		{"touching boundaries do not overlap", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"partial overlap", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"containment", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"identical ranges", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"one minute overlap", at(9, 0), at(10, 1), at(10, 0), at(11, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "overlap is symmetric")
		})
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	in := time.Date(2026, 9, 10, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), DateOf(in))
}
