package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/animewiki/internal/collection"
	"github.com/mmcdole/animewiki/internal/domain"
)

// Message types for the TUI. Gen ties a message to the load that produced
// it so results from a cancelled load are ignored.

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// LoadStartedMsg signals that materialization began
type LoadStartedMsg struct {
	Gen     int
	Total   int
	NextCmd tea.Cmd
}

// ItemLoadedMsg delivers the next item in collection order
type ItemLoadedMsg struct {
	Gen     int
	Item    collection.Item
	NextCmd tea.Cmd
}

// LoadFailedMsg signals that the collection could not be read at all
type LoadFailedMsg struct {
	Gen int
	Err error
}

// LoadDoneMsg signals that every item has been delivered
type LoadDoneMsg struct {
	Gen int
}

// RemovedMsg signals that an id was removed from the collection
type RemovedMsg struct {
	Kind domain.MediaKind
	ID   domain.MediaID
	Set  collection.Set
}

// ClearStatusMsg clears the status line
type ClearStatusMsg struct{}
