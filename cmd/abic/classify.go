package main

import (
	"github.com/spf13/cobra"

	"callconv/internal/report"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [flags] <signatures.toml>",
		Short: "Show the disposition of every result and argument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readRunOptions(cmd)
			if err != nil {
				return err
			}
			b, cleanup, err := lowerFile(cmd, args[0], opts)
			if err != nil {
				return err
			}
			doc := report.FromBatch(b, opts.timings)
			if err := report.Write(cmd.OutOrStdout(), doc, opts.format, report.TextOpts{Color: opts.color}); err != nil {
				cleanup(true)
				return err
			}
			err = failedError(b)
			cleanup(err != nil)
			return err
		},
	}
}
