// Command whisper-dictate listens to the microphone and prints one line of
// text per spoken utterance.
//
// Usage:
//
//	whisper-dictate [flags]
//	whisper-dictate devices
//	whisper-dictate version
//
// Recognized text goes to stdout. Diagnostics go to stderr.
package main

import (
	"fmt"
	"os"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	if err := newCLI(os.Stdout, os.Stderr).command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
