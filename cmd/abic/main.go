package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
	"golang.org/x/term"

	"callconv/internal/version"
)

// newRootCmd assembles the CLI. Environment variables ABIC_TARGET and
// ABIC_JOBS provide defaults for --target and --jobs.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "abic",
		Short:         "Inspect C calling-convention lowering",
		Long:          `abic classifies function signatures described in a TOML file and shows how each value crosses the call boundary on a target.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newClassifyCmd())
	root.AddCommand(newLowerCmd())
	root.AddCommand(newVersionCmd())

	flags := root.PersistentFlags()
	flags.String("target", env.Str("ABIC_TARGET"), "target triple, overrides [target].triple")
	flags.Int("jobs", env.Int("ABIC_JOBS", 0), "signatures lowered in parallel (0 = GOMAXPROCS)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("format", "text", "report format (text|json|msgpack)")
	flags.String("ui", "auto", "progress view while lowering (auto|on|off)")
	flags.Bool("timings", false, "show timing information")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "trace encoding (auto|text|ndjson|msgpack)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.String("cpu-profile", "", "write a CPU profile of the run to this file")
	flags.String("mem-profile", "", "write a heap profile after the run to this file")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
