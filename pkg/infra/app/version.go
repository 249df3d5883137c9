// Package app provides application bootstrapping with Cobra, Viper, and Pflag.
package app

import "github.com/kart-io/version"

// GetVersion reports the git-derived version the binary was built with.
// The binaries embed it in their cobra command Version field.
func GetVersion() string {
	return version.Get().GitVersion
}
