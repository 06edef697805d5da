package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"logos/internal/driver"
	"logos/internal/progfile"
	"logos/internal/ui"
)

type analyzeOutcome struct {
	result *driver.Result
	err    error
}

// runAnalyzeWithUI runs the pipeline behind a live progress display.
// The pipeline feeds a channel sink; the Bubble Tea program drains it
// until the pipeline goroutine closes the channel.
func runAnalyzeWithUI(ctx context.Context, title string, bundle *progfile.Bundle, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan analyzeOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = driver.ChannelSink{Ch: events}
		res, err := driver.Analyze(ctx, bundle, optsCopy)
		outcomeCh <- analyzeOutcome{result: res, err: err}
		close(events)
	}()

	units := make([]string, 0, len(bundle.Program.Funcs))
	for _, fn := range bundle.Program.Funcs {
		if !fn.Native {
			units = append(units, fn.Name)
		}
	}
	model := ui.NewProgressModel(title, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
