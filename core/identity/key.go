// Package identity derives store-safe keys from raw email addresses.
//
// The tree store forbids "." in path segments, so every "." in an email is
// rewritten to ",". Nothing else is touched: no trimming, no case-folding.
// Two raw emails differing only in case or surrounding whitespace map to
// two distinct keys. The raw email is stored redundantly inside the records
// keyed this way, so the original can always be recovered for display and
// for calls to the identity provider.
package identity

import "strings"

// Key returns the canonical identity key for a raw email.
func Key(email string) string {
	return strings.ReplaceAll(email, ".", ",")
}
