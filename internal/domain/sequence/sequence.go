// Package sequence defines per-tenant document numbering: a series prefix
// followed by a zero-padded counter, e.g. SALE-0042.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Series identifies an independent numbering sequence
type Series string

const (
	SeriesSale        Series = "SALE"
	SeriesPurchase    Series = "PURCH"
	SeriesTransaction Series = "TXN"
)

// Width is the minimum number of digits in a formatted number
const Width = 4

// IsValid checks if the series is known
func (s Series) IsValid() bool {
	return s == SeriesSale || s == SeriesPurchase || s == SeriesTransaction
}

// Prefix returns the series prefix including the separator
func (s Series) Prefix() string {
	return string(s) + "-"
}

// Format renders n in the series, e.g. Format(SeriesSale, 7) = "SALE-0007".
// Numbers wider than Width are not truncated.
func Format(s Series, n int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix(), Width, n)
}

// ParseSuffix extracts the counter from a formatted number of the series
func ParseSuffix(s Series, number string) (int64, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(number), s.Prefix())
	if !ok || digits == "" {
		return 0, fmt.Errorf("number %q is not in series %s", number, s)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("number %q has a non-numeric suffix", number)
	}
	return n, nil
}

// Range formats count consecutive numbers starting at first
func Range(s Series, first int64, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = Format(s, first+int64(i))
	}
	return out
}

// Generator hands out the next numbers of a series for a tenant. It reads the
// current maximum inside the caller's unit of work, so implementations are
// only ever bound to an open transaction.
type Generator interface {
	// Next returns the next number in the series
	Next(ctx context.Context, tenantID uuid.UUID, series Series) (string, error)
	// Reserve returns count consecutive numbers from a single read of the maximum
	Reserve(ctx context.Context, tenantID uuid.UUID, series Series, count int) ([]string, error)
}
