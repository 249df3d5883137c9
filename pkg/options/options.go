// Package options defines the generic options interface and common utilities.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty. It is used to build flag names like "milvus.address"
// or "chat.model".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions defines the methods a reusable options section implements.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds flags for this section to the given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
