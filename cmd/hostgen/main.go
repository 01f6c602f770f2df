// Package main provides the hostgen command line tool.
//
// hostgen learns a character-level Markov model from a corpus of host names
// and synthesizes new names that look like they belong to the same
// namespace.
//
// Usage:
//
//	hostgen train corpus.txt -o model.json
//	hostgen generate -m model.json -n 100
//	hostgen score -m model.json www.example.com
//
// See --help for all available options.
package main

// Version information set at build time via ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	Execute()
}
