package finance

import (
	"fmt"
	"strconv"
	"strings"
)

// Document numbers are human-readable, per-year incrementing codes like
// VEN-2026-007. The allocator is a pure function over the greatest existing
// number in scope: read max, parse its tail, add one. Sale numbers live in a
// single global scope; purchase, quotation and ledger scopes are per
// practitioner.

func numberPrefix(kind DocumentKind) string {
	switch kind {
	case KindSale:
		return "VEN"
	case KindPurchase:
		return "COM"
	case KindQuotation:
		return "COT"
	}
	return "DOC"
}

// ScopePrefix is the shared "VEN-2026-" part of every number allocated for a
// kind within a year. Repositories match on it when reading the current max.
func ScopePrefix(kind DocumentKind, year int) string {
	return fmt.Sprintf("%s-%d-", numberPrefix(kind), year)
}

// FormatNumber zero-pads the counter to at least three digits.
func FormatNumber(kind DocumentKind, year, n int) string {
	return fmt.Sprintf("%s%03d", ScopePrefix(kind, year), n)
}

// NextNumber returns the number after lastNumber within the scope, or the
// first one when the scope is empty.
func NextNumber(kind DocumentKind, year int, lastNumber string) string {
	return FormatNumber(kind, year, trailingInt(lastNumber)+1)
}

// trailingInt parses the counter tail of a document number. Unparseable or
// empty input counts as zero, so allocation restarts at 1.
func trailingInt(number string) int {
	idx := strings.LastIndexByte(number, '-')
	if idx < 0 || idx == len(number)-1 {
		return 0
	}
	n, err := strconv.Atoi(number[idx+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
