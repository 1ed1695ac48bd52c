package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ProgressStep represents a single step in a multi-step process
type ProgressStep struct {
	Message string
	Fn      func() error
}

// ShowProgress runs fn behind a spinner on terminals and plain log output
// elsewhere
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		LogInfo(message)
		return fn()
	}
	return showSpinner(ctx, os.Stderr, message, fn)
}

// ShowProgressWithSteps shows progress for multiple steps
func ShowProgressWithSteps(ctx context.Context, steps []ProgressStep) error {
	for i, step := range steps {
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), step.Message)
		if err := ShowProgress(ctx, msg, step.Fn); err != nil {
			return fmt.Errorf("%s: %w", step.Message, err)
		}
	}
	return nil
}

func showSpinner(ctx context.Context, w io.Writer, message string, fn func() error) error {
	done := make(chan error, 1)
	stop := make(chan struct{})
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", progressStyle.Render(spinnerFrames[i%len(spinnerFrames)]), message)
			}
		}
	}()

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		close(stop)
		<-spinnerDone
		if err != nil {
			fmt.Fprintf(w, "\r%s %s\n", errorStyle.Render("✗"), message)
			return err
		}
		fmt.Fprintf(w, "\r%s %s\n", successStyle.Render("✓"), message)
		return nil
	case <-ctx.Done():
		close(stop)
		<-spinnerDone
		return ctx.Err()
	}
}

// EventPrinter renders run events as single status lines. It is the
// non-interactive counterpart of the TUI.
type EventPrinter struct {
	w     io.Writer
	color bool
	frame int
}

// NewEventPrinter creates a printer writing to w
func NewEventPrinter(w io.Writer) *EventPrinter {
	return &EventPrinter{w: w, color: isTerminal(w)}
}

// Print renders ev. Step events overwrite the previous line on terminals.
func (p *EventPrinter) Print(ev Event) {
	switch ev.Kind {
	case EventStep:
		line := fmt.Sprintf("step %d  %s  total=%d  stalls=%d", ev.Step, ev.State, ev.Total, ev.Stalls)
		if !p.color {
			fmt.Fprintln(p.w, line)
			return
		}
		p.frame++
		fmt.Fprintf(p.w, "\r%s %s", progressStyle.Render(spinnerFrames[p.frame%len(spinnerFrames)]), line)
	case EventPage:
		if ev.Page == nil {
			return
		}
		p.line(progressStyle, "↓", fmt.Sprintf("api page: %d fetched, %d new, %d total", ev.Page.Fetched, ev.Page.Added, ev.Page.Total))
	case EventState:
		if ev.State == StateFallingBack {
			p.line(warningStyle, "⚠", fmt.Sprintf("view stalled after %d attempts, using history API", ev.Stalls))
		}
	case EventOutcome:
		if ev.Result == nil {
			return
		}
		switch ev.Result.Outcome {
		case OutcomeExported:
			p.line(successStyle, "✓", fmt.Sprintf("%d messages exported %s", ev.Result.Messages, dimStyle.Render(ev.Result.Location)))
		case OutcomeEmpty:
			p.line(warningStyle, "⚠", "no messages collected")
		default:
			p.line(errorStyle, "✗", ev.Result.Error)
		}
	}
}

func (p *EventPrinter) line(style lipgloss.Style, symbol, msg string) {
	if !p.color {
		fmt.Fprintln(p.w, msg)
		return
	}
	fmt.Fprintf(p.w, "\r%s %s\n", style.Render(symbol), msg)
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}
