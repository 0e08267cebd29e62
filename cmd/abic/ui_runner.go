package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"callconv/internal/driver"
	"callconv/internal/sigfile"
	"callconv/internal/ui"
)

type lowerOutcome struct {
	batch *driver.Batch
	err   error
}

// lowerWithUI runs LowerAll while a progress view follows each signature.
func lowerWithUI(ctx context.Context, cmd *cobra.Command, title string, u *sigfile.Unit, opts driver.Options) (*driver.Batch, error) {
	events := make(chan driver.SignatureEvent, 256)
	outcomeCh := make(chan lowerOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelProgress(events)
		b, err := driver.LowerAll(ctx, u, opts)
		outcomeCh <- lowerOutcome{batch: b, err: err}
		close(events)
	}()

	names := make([]string, len(u.Signatures))
	for i, sig := range u.Signatures {
		names[i] = sig.Name
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep draining so the workers never block on a full channel.
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.batch, uiErr
	}
	return outcome.batch, outcome.err
}
