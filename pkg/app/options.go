// Package app defines the option contract shared by the fedscope binaries.
package app

import "github.com/spf13/pflag"

// CliOptions is implemented by every binary's options struct. The app
// framework drives the three phases in order: flags are registered, the
// merged flag/config/env values are completed with defaults, then
// validated before the run function starts.
type CliOptions interface {
	// AddFlags registers the options' flags on fs.
	AddFlags(fs *pflag.FlagSet)
	// Complete fills derived and defaulted values.
	Complete() error
	// Validate checks the completed options.
	Validate() error
}
