package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"callconv/internal/driver"
	"callconv/internal/report"
	"callconv/internal/sigfile"
	"callconv/internal/trace"
)

type colorMode string

const (
	colorAuto colorMode = "auto"
	colorOn   colorMode = "on"
	colorOff  colorMode = "off"
)

func readColorMode(value string) (colorMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return colorAuto, nil
	case "on":
		return colorOn, nil
	case "off":
		return colorOff, nil
	default:
		return "", fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// useColor resolves auto against the command's stdout.
func useColor(cmd *cobra.Command, mode colorMode) bool {
	switch mode {
	case colorOn:
		return true
	case colorOff:
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTerminal(f)
}

// runOptions are the persistent flags shared by classify and lower.
type runOptions struct {
	target  string
	jobs    int
	color   bool
	format  report.Format
	timings bool
	tui     bool
}

func readRunOptions(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Root().PersistentFlags()
	var opts runOptions
	var err error
	if opts.target, err = flags.GetString("target"); err != nil {
		return opts, fmt.Errorf("failed to get target flag: %w", err)
	}
	if opts.jobs, err = flags.GetInt("jobs"); err != nil {
		return opts, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if opts.timings, err = flags.GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	colorStr, err := flags.GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := readColorMode(colorStr)
	if err != nil {
		return opts, err
	}
	opts.color = useColor(cmd, mode)
	formatStr, err := flags.GetString("format")
	if err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.format, err = report.ParseFormat(formatStr); err != nil {
		return opts, err
	}
	uiStr, err := flags.GetString("ui")
	if err != nil {
		return opts, fmt.Errorf("failed to get ui flag: %w", err)
	}
	uiChoice, err := readUIMode(uiStr)
	if err != nil {
		return opts, err
	}
	// Machine-readable output is never mixed with the progress view.
	opts.tui = opts.format == report.FormatText && shouldUseTUI(cmd, uiChoice)
	return opts, nil
}

// lowerFile loads path and lowers every signature in it. The returned
// cleanup must be called with whether the command failed.
func lowerFile(cmd *cobra.Command, path string, opts runOptions) (*driver.Batch, func(bool), error) {
	stopProfiles, err := setupProfiling(cmd)
	if err != nil {
		return nil, nil, err
	}
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		stopProfiles()
		return nil, nil, err
	}
	cleanup := func(failed bool) {
		stopTracing(failed)
		stopProfiles()
	}
	ctx := cmd.Context()
	_, span := trace.Start(ctx, trace.ScopePass, "abic.load")
	u, err := sigfile.Load(path, sigfile.Options{Triple: opts.target})
	if err != nil {
		span.End(err.Error())
		cleanup(true)
		return nil, nil, err
	}
	span.End(fmt.Sprintf("%d signatures", len(u.Signatures)))

	var b *driver.Batch
	if opts.tui {
		b, err = lowerWithUI(ctx, cmd, "lowering "+filepath.Base(path), u, driver.Options{Jobs: opts.jobs})
	} else {
		b, err = driver.LowerAll(ctx, u, driver.Options{Jobs: opts.jobs})
	}
	if err != nil {
		cleanup(true)
		return nil, nil, err
	}
	return b, cleanup, nil
}

// failedError summarizes signatures that did not lower.
func failedError(b *driver.Batch) error {
	failed := b.Failed()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d signatures failed to lower", len(failed), len(b.Results))
}
