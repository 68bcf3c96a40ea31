package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed opaque identifier, e.g. "inv-0f8fad5b-...".
// The prefix makes ids self-describing in audit trails and logs.
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
