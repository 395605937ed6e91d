package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// UIManager handles user-facing terminal output (spinners, status lines)
type UIManager interface {
	// Spinner for a remote call of unknown duration
	NewSpinner(description string) Spinner

	// Verbose output
	Verbose(format string, args ...any)

	// Status messages
	Printf(format string, args ...any)
	Println(args ...any)
}

// Spinner abstracts an indeterminate progress indicator
type Spinner interface {
	Describe(description string)
	Finish()
}

// StandardUIManager writes status to stderr so stdout carries only results
type StandardUIManager struct {
	verbose     bool
	quiet       bool
	interactive bool
	out         io.Writer
}

// NewUIManager creates a UI manager; spinners only animate on a terminal
func NewUIManager(verbose, quiet bool) UIManager {
	return &StandardUIManager{
		verbose:     verbose,
		quiet:       quiet,
		interactive: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		out:         os.Stderr,
	}
}

// NewSpinner starts a spinner that ticks until Finish
func (ui *StandardUIManager) NewSpinner(description string) Spinner {
	if ui.quiet || !ui.interactive {
		return silentSpinner{}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ui.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	s := &visibleSpinner{bar: bar, done: make(chan struct{})}
	go s.tick(100 * time.Millisecond)
	return s
}

// Verbose Output Methods
func (ui *StandardUIManager) Verbose(format string, args ...any) {
	if ui.verbose {
		fmt.Fprintf(ui.out, format, args...)
	}
}

// Status Message Methods
func (ui *StandardUIManager) Printf(format string, args ...any) {
	if !ui.quiet {
		fmt.Fprintf(ui.out, format, args...)
	}
}

func (ui *StandardUIManager) Println(args ...any) {
	if !ui.quiet {
		fmt.Fprintln(ui.out, args...)
	}
}

// visibleSpinner wraps an indeterminate progress bar
type visibleSpinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	once sync.Once
}

func (s *visibleSpinner) tick(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			_ = s.bar.Add(1)
		}
	}
}

func (s *visibleSpinner) Describe(description string) {
	s.bar.Describe(description)
}

func (s *visibleSpinner) Finish() {
	s.once.Do(func() {
		close(s.done)
		_ = s.bar.Finish()
	})
}

// silentSpinner implements a no-op spinner
type silentSpinner struct{}

func (silentSpinner) Describe(string) {}
func (silentSpinner) Finish()         {}
