// Command pnr is the CLI entry point: it wires the context/binding
// layer, timing analyser, placer and router packages into a single
// batch pipeline driven by cobra flags and a persisted project file.
//
// Netlist ingestion, constraint-file parsing and bitstream generation
// are external collaborators; this binary's only netlist source is a
// project file written by a previous run (or, for --test, a synthetic
// testarch device used as the reference architecture backend when no
// family backend is linked in).
package main

import (
	"github.com/tebeka/atexit"
)

// exitCode is set by runRoot before it returns; main reads it after
// cobra's Execute returns so that the three-way exit code (0 success,
// 1 non-fatal errors, -1 hard failure) survives past cobra's own
// error/no-error return convention.
var exitCode int

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if exitCode == 0 {
			exitCode = -1
		}
	}
	atexit.Exit(exitCode)
}
