package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pyflow/internal/diag"
	"pyflow/internal/driver"
	"pyflow/internal/source"
	"pyflow/internal/ui"
)

type checkOutcome struct {
	files   *source.FileSet
	results []driver.FileResult
	err     error
}

// runCheckDirWithUI runs the directory analysis behind a Bubble Tea
// progress view. The analysis happens on its own goroutine; completion
// events stream into the model until the channel closes.
func runCheckDirWithUI(ctx context.Context, dir string, cfg driver.Config, jobs int) (*source.FileSet, []driver.FileResult, error) {
	paths, err := driver.ListDocuments(dir)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan ui.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		files, results, err := driver.AnalyzeDir(ctx, dir, cfg, jobs, func(r driver.FileResult) {
			events <- ui.Event{
				Path:     r.Path,
				Status:   resultStatus(r),
				Findings: r.Bag.Len(),
			}
		})
		outcomeCh <- checkOutcome{files: files, results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("pyflow check", paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.files, outcome.results, uiErr
	}
	return outcome.files, outcome.results, outcome.err
}

func resultStatus(r driver.FileResult) ui.Status {
	switch {
	case bagHasCode(r.Bag, diag.IOLoadFileError):
		return ui.StatusError
	case r.FromCache:
		return ui.StatusCached
	case r.Bag.Len() == 0:
		return ui.StatusClean
	default:
		return ui.StatusFindings
	}
}

func bagHasCode(b *diag.Bag, code diag.Code) bool {
	for _, d := range b.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}
