package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims a user supplied name and composes it to NFC,
// so visually identical names compare equal byte for byte.
// "  Café " -> "Café".
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// FoldKey returns the case-folded form used for uniqueness and matching.
// "Travel" and "TRAVEL" share a key; so do "Straße" and "STRASSE".
func FoldKey(s string) string {
	// Casers carry state, so one is created per call.
	return cases.Fold().String(norm.NFC.String(s))
}
