package ledger

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WalkInCustomerName is the ledger name used for documents without a customer
const WalkInCustomerName = "CLIENT COMPTANT"

// NormalizeCustomerName returns the natural key for a customer name:
// trimmed, inner whitespace collapsed, Unicode upper-cased.
func NormalizeCustomerName(name string) string {
	return cases.Upper(language.Und).String(strings.Join(strings.Fields(name), " "))
}

// ResolveCustomerName normalizes name, falling back to the walk-in customer
func ResolveCustomerName(name string) string {
	if key := NormalizeCustomerName(name); key != "" {
		return key
	}
	return WalkInCustomerName
}
