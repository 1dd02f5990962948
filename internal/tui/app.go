// Package tui provides the interactive terminal view of a running batch.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/archivist/internal/archive"
	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/report"
)

// logLines is how many recent status lines stay on screen.
const logLines = 8

// BatchFunc runs one batch, reporting progress through onProgress.
type BatchFunc func(ctx context.Context, onProgress archive.ProgressFunc) (*models.BatchResult, error)

type progressMsg struct {
	percent float64
	status  string
}

type batchDoneMsg struct {
	result *models.BatchResult
	err    error
}

// App is the batch progress model.
type App struct {
	source   string
	cancel   context.CancelFunc
	progress progress.Model
	spinner  spinner.Model
	entries  list.Model

	percent    float64
	status     string
	log        []string
	done       bool
	cancelling bool
	result     *models.BatchResult
	err        error
	width      int
	height     int
}

// New creates the model for a batch over source. cancel is called when the
// user interrupts the batch.
func New(source string, cancel context.CancelFunc) *App {
	return &App{
		source:   source,
		cancel:   cancel,
		progress: progress.New(progress.WithDefaultGradient()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(primaryColor))),
		entries:  newEntryList(),
		status:   "Starting...",
		width:    80,
		height:   24,
	}
}

// Run shows the model while batch runs and returns the batch's outcome.
func Run(ctx context.Context, source string, batch BatchFunc) (*models.BatchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := New(source, cancel)
	p := tea.NewProgram(app, tea.WithAltScreen())

	var (
		res      *models.BatchResult
		batchErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, batchErr = batch(ctx, func(percent float64, status string) {
			p.Send(progressMsg{percent: percent, status: status})
		})
		p.Send(batchDoneMsg{result: res, err: batchErr})
	}()

	_, err := p.Run()
	cancel()
	<-finished
	if err != nil {
		return res, err
	}
	return res, batchErr
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.done || a.cancelling {
				return a, tea.Quit
			}
			a.cancelling = true
			a.status = "Cancelling, finishing the current entry..."
			if a.cancel != nil {
				a.cancel()
			}
			return a, nil
		}
		if !a.done {
			return a, nil
		}
		if a.entries.FilterState() != list.Filtering {
			switch msg.String() {
			case "q", "esc":
				return a, tea.Quit
			}
		}
		var cmd tea.Cmd
		a.entries, cmd = a.entries.Update(msg)
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.progress.Width = max(10, msg.Width-4)
		a.entries.SetSize(msg.Width, max(5, msg.Height-12))

	case progressMsg:
		a.percent = msg.percent
		a.status = msg.status
		a.log = append(a.log, msg.status)
		if len(a.log) > logLines {
			a.log = a.log[len(a.log)-logLines:]
		}

	case batchDoneMsg:
		a.done = true
		a.result = msg.result
		a.err = msg.err
		if msg.result != nil {
			a.percent = 100
			return a, a.entries.SetItems(entryItems(msg.result.Entries))
		}

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("ARCHIVIST") + "  " + sourceStyle.Render(a.source)
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(1, a.width)) + "\n\n")

	if !a.done {
		b.WriteString(a.spinner.View() + " " + a.status + "\n\n")
		b.WriteString(a.progress.ViewAs(a.percent/100) + "\n\n")
		for _, line := range a.log {
			b.WriteString(logStyle.Render("  "+line) + "\n")
		}
		b.WriteString("\n")
		b.WriteString(statusBarStyle.Width(a.width).Render(" Ctrl+C: cancel batch"))
		return b.String()
	}

	b.WriteString(panelStyle.Render(a.summary()) + "\n")
	if a.err != nil {
		style := errorStyle
		if a.cancelling {
			style = warningStyle
		}
		b.WriteString(style.Render("Error: "+a.err.Error()) + "\n")
	}
	if a.result != nil && len(a.result.Entries) > 0 {
		b.WriteString("\n" + a.entries.View() + "\n")
	}
	b.WriteString(helpStyle.Render(" ↑↓: browse • /: filter • q: quit") + "\n")
	return b.String()
}

func (a *App) summary() string {
	s := report.Summary(a.result)
	if a.result != nil && a.result.Failure == nil && a.result.Total > 0 && a.result.Failed == 0 {
		s = successStyle.Render("All entries filed.") + "\n" + s
	}
	return s
}

// Percent reports the last progress value received.
func (a *App) Percent() float64 { return a.percent }

// Done reports whether the batch has finished.
func (a *App) Done() bool { return a.done }
