// Package main is the mailsanitized CLI binary.
package main

import (
	"os"

	"github.com/mailchannels/mailsanitizer/cmd/mailsanitized/cmd"
)

var (
	// Version is set via ldflags during build.
	Version = "dev"
)

func main() {
	cmd.SetVersion(Version)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
