package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/report"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	stateMoved     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	stateFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	stateCancelled = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
)

// EntryItem implements list.Item for one filed entry.
type EntryItem struct {
	Entry *models.Entry
}

func (i EntryItem) FilterValue() string { return i.Entry.Name + " " + report.Decision(i.Entry) }
func (i EntryItem) Title() string {
	return fmt.Sprintf("%s %s", i.Entry.Kind.Label(), i.Entry.Name)
}
func (i EntryItem) Description() string {
	e := i.Entry
	desc := fmt.Sprintf("%s • %s • %s", formatState(e.State), report.Decision(e), e.Elapsed.Round(10*time.Millisecond))
	if e.Failure != nil {
		desc += " • " + e.Failure.Error()
	}
	return desc
}

func formatState(s models.State) string {
	switch s {
	case models.StateMoved:
		return stateMoved.Render("● moved")
	case models.StateCancelled:
		return stateCancelled.Render("● cancelled")
	case models.StateClassificationFailed, models.StateMoveFailed:
		return stateFailed.Render("● " + string(s))
	default:
		return string(s)
	}
}

func newEntryList() list.Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Entries"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle
	return l
}

func entryItems(entries []*models.Entry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = EntryItem{Entry: e}
	}
	return items
}
