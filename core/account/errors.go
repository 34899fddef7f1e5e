package account

import (
	"fmt"
	"strings"
)

// PartialProvisionError reports a multi-write account lifecycle operation
// that failed partway through. The writes are independent and the store has
// no multi-path transactions, so the prior sub-writes stay committed; the
// error carries enough context for manual reconciliation.
type PartialProvisionError struct {
	Op        string   // "create" or "remove"
	Key       string   // canonical identity key
	Committed []string // paths whose writes succeeded before the failure
	Err       error    // the failure that stopped the sequence
}

func (e *PartialProvisionError) Error() string {
	return fmt.Sprintf(
		"%s of %q partially applied (committed: %s): %v",
		e.Op, e.Key, strings.Join(e.Committed, ", "), e.Err,
	)
}

func (e *PartialProvisionError) Unwrap() error { return e.Err }
