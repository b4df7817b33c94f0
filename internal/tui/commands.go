package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/animewiki/internal/collection"
	"github.com/mmcdole/animewiki/internal/domain"
)

// Collections is the part of the collection store the browser uses
type Collections interface {
	List(ctx context.Context, user domain.UserHandle, kind domain.MediaKind) ([]domain.MediaID, error)
	Materialize(ctx context.Context, user domain.UserHandle, kind domain.MediaKind) (collection.Sequence, error)
	Remove(ctx context.Context, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) (collection.Set, error)
}

// MaterializeCmd starts resolving the collection and streams items back one
// message at a time. Cancelling ctx stops the stream.
func MaterializeCmd(ctx context.Context, svc Collections, user domain.UserHandle, kind domain.MediaKind, gen int) tea.Cmd {
	return func() tea.Msg {
		ids, err := svc.List(ctx, user, kind)
		if err != nil {
			return LoadFailedMsg{Gen: gen, Err: err}
		}
		seq, err := svc.Materialize(ctx, user, kind)
		if err != nil {
			return LoadFailedMsg{Gen: gen, Err: err}
		}

		itemCh := make(chan collection.Item)
		go func() {
			defer close(itemCh)
			for id, r := range seq {
				select {
				case itemCh <- collection.Item{ID: id, Result: r}:
				case <-ctx.Done():
					return
				}
			}
		}()

		return LoadStartedMsg{Gen: gen, Total: len(ids), NextCmd: listenCmd(gen, itemCh)}
	}
}

// listenCmd returns a command that reads the next item from the channel
func listenCmd(gen int, itemCh <-chan collection.Item) tea.Cmd {
	return func() tea.Msg {
		item, ok := <-itemCh
		if !ok {
			return LoadDoneMsg{Gen: gen}
		}
		return ItemLoadedMsg{Gen: gen, Item: item, NextCmd: listenCmd(gen, itemCh)}
	}
}

// RemoveCmd removes id from the collection
func RemoveCmd(svc Collections, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		set, err := svc.Remove(ctx, user, kind, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "removing " + string(id)}
		}
		return RemovedMsg{Kind: kind, ID: id, Set: set}
	}
}

// ClearStatusCmd clears the status line after delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
