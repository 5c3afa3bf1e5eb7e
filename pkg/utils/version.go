// Package utils holds small helpers shared across the leadforge commands.
package utils

// Build metadata, stamped via -ldflags at release time.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
