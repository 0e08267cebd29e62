package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"callconv/internal/driver"
	"callconv/internal/report"
)

func newLowerCmd() *cobra.Command {
	var emitIR string
	cmd := &cobra.Command{
		Use:   "lower [flags] <signatures.toml>",
		Short: "Show physical parameter lists and optionally emit LLVM IR",
		Long: `lower prints each signature's physical parameters and attributes.
With --emit-ir it also writes an LLVM module with a declaration, a
forwarding wrapper and, for signatures listing va_reads, a va_list reader.
--emit-ir - writes the module to stdout instead of the report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readRunOptions(cmd)
			if err != nil {
				return err
			}
			if emitIR == "-" {
				opts.tui = false
			}
			b, cleanup, err := lowerFile(cmd, args[0], opts)
			if err != nil {
				return err
			}
			failed := false
			defer func() { cleanup(failed) }()

			var irErr error
			if emitIR != "" {
				irErr = writeModule(cmd, b, emitIR)
			}
			if emitIR != "-" {
				doc := report.FromBatch(b, opts.timings)
				textOpts := report.TextOpts{Color: opts.color, Physical: true}
				if err := report.Write(cmd.OutOrStdout(), doc, opts.format, textOpts); err != nil {
					failed = true
					return err
				}
			}
			err = errors.Join(irErr, failedError(b))
			failed = err != nil
			return err
		},
	}
	cmd.Flags().StringVar(&emitIR, "emit-ir", "", "write the LLVM module to a file (- for stdout)")
	return cmd
}

func writeModule(cmd *cobra.Command, b *driver.Batch, path string) error {
	mod, buildErr := driver.BuildModule(cmd.Context(), b)
	var out io.Writer = cmd.OutOrStdout()
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	if _, err := io.WriteString(out, mod); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}
	return buildErr
}
