// Package sanitize strips message markup down to a small inline subset.
// Sanitizing is deterministic and idempotent: running it over already
// sanitized text is a no-op.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Allowed inline elements. Everything else is stripped, tags and attributes
// alike.
var allowedElements = []string{"p", "b", "i", "strong", "em"}

type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements(allowedElements...)
	return &Sanitizer{policy: policy}
}

// Clean strips disallowed markup and trims surrounding whitespace.
func (s *Sanitizer) Clean(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
