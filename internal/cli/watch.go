package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/adapters/file"
	"github.com/aretw0/lattice/internal/presentation/tui"
)

// WatchOptions configures RunWatch.
type WatchOptions struct {
	Path     string
	Debounce time.Duration
	// Render turns the markdown report into terminal output. Identity when nil.
	Render func(string) (string, error)
	Out    io.Writer
}

// RunWatch revalidates the diagram at opts.Path each time it changes on disk,
// printing a report per revision. It returns when ctx is cancelled.
func RunWatch(ctx context.Context, ws *lattice.Workspace, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = file.DefaultDebounce
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	logger := ws.Logger()

	changes, err := file.WatchPath(ctx, opts.Path, opts.Debounce)
	if err != nil {
		return err
	}
	logger.Info("Starting watcher", "path", opts.Path)

	Check(ctx, ws, opts)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Change detected, revalidating", "path", opts.Path)
			Check(ctx, ws, opts)
		}
	}
}

// Check imports and validates the file once, writing the report to opts.Out.
// Read and import failures are reported instead of returned so the watch loop survives them.
func Check(ctx context.Context, ws *lattice.Workspace, opts WatchOptions) bool {
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		fmt.Fprintf(opts.Out, "cannot read %s: %v\n", opts.Path, err)
		return false
	}
	imported, err := ws.Import(ctx, opts.Path, data)
	if err != nil {
		fmt.Fprintf(opts.Out, "cannot import %s: %v\n", opts.Path, err)
		return false
	}

	res := ws.Validate(ctx, imported.Diagram)
	report := tui.ValidationMarkdown(imported.Diagram, res)
	if opts.Render != nil {
		if rendered, err := opts.Render(report); err == nil {
			report = rendered
		}
	}
	fmt.Fprintln(opts.Out, report)
	return res.IsValid
}
