package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTableCount is the size of the roster created when none is stored.
const DefaultTableCount = 30

// NormalizeTableCode trims and upper-cases a table code.
func NormalizeTableCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeTableCodes normalizes, drops empties and removes duplicates,
// keeping first-seen order.
func NormalizeTableCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		n := NormalizeTableCode(c)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// DefaultTableCodes returns T01..Tn.
func DefaultTableCodes(n int) []string {
	if n <= 0 {
		n = DefaultTableCount
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("T%02d", i+1)
	}
	return out
}

// CleanName trims a catalog name and converts it to NFC so visually equal
// names compare equal in storage.
func CleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CleanActor substitutes "system" for an empty actor.
func CleanActor(actor string) string {
	a := strings.TrimSpace(actor)
	if a == "" {
		return "system"
	}
	return a
}
