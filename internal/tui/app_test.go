package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/animewiki/internal/collection"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollections struct {
	items   map[domain.MediaKind][]collection.Item
	removed []domain.MediaID
}

func (f *fakeCollections) List(ctx context.Context, user domain.UserHandle, kind domain.MediaKind) ([]domain.MediaID, error) {
	if user.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	ids := make([]domain.MediaID, len(f.items[kind]))
	for i, it := range f.items[kind] {
		ids[i] = it.ID
	}
	return ids, nil
}

func (f *fakeCollections) Materialize(ctx context.Context, user domain.UserHandle, kind domain.MediaKind) (collection.Sequence, error) {
	items := f.items[kind]
	return func(yield func(domain.MediaID, collection.Result) bool) {
		for _, it := range items {
			if !yield(it.ID, it.Result) {
				return
			}
		}
	}, nil
}

func (f *fakeCollections) Remove(ctx context.Context, user domain.UserHandle, kind domain.MediaKind, id domain.MediaID) (collection.Set, error) {
	f.removed = append(f.removed, id)
	return collection.Set{User: user, Kind: kind}, nil
}

func okItem(id, title string) collection.Item {
	return collection.Item{ID: domain.MediaID(id), Result: collection.Result{Entry: &domain.Entry{ID: domain.MediaID(id), Title: title}}}
}

func failedItem(id string, err error) collection.Item {
	return collection.Item{ID: domain.MediaID(id), Result: collection.Result{Err: &domain.FetchError{ID: domain.MediaID(id), Err: err}}}
}

// drain runs a load command chain to completion against the model
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if _, isBatch := msg.(tea.BatchMsg); isBatch {
			t.Fatal("unexpected batch in load chain")
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
		if _, done := msg.(LoadDoneMsg); done {
			break
		}
	}
	return m
}

func loaded(t *testing.T, svc *fakeCollections, user domain.UserHandle) Model {
	t.Helper()
	m := NewModel(svc, user, domain.KindAnime)
	return drain(t, m, m.initCmd)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestModel_LoadsInOrder(t *testing.T) {
	svc := &fakeCollections{items: map[domain.MediaKind][]collection.Item{
		domain.KindAnime: {okItem("5114", "FMA"), failedItem("9", domain.ErrNotFound), okItem("1", "Bebop")},
	}}
	m := loaded(t, svc, "alice")

	require.Len(t, m.rows, 3)
	assert.Equal(t, []domain.MediaID{"5114", "9", "1"}, []domain.MediaID{m.rows[0].id, m.rows[1].id, m.rows[2].id})
	assert.False(t, m.loading)
	assert.Equal(t, 3, m.total)
	assert.Equal(t, "1 of 3 unavailable", m.status)

	view := m.View()
	assert.Contains(t, view, "FMA")
	assert.Contains(t, view, "#9 unavailable: not found")
}

func TestModel_UnauthenticatedShowsError(t *testing.T) {
	m := loaded(t, &fakeCollections{}, "")
	assert.False(t, m.loading)
	require.Error(t, m.err)
	assert.True(t, errors.Is(m.err.(ErrMsg).Err, domain.ErrUnauthenticated))
}

func TestModel_StaleGenerationIgnored(t *testing.T) {
	svc := &fakeCollections{items: map[domain.MediaKind][]collection.Item{
		domain.KindAnime: {okItem("1", "A")},
		domain.KindManga: {okItem("2", "B")},
	}}
	m := loaded(t, svc, "alice")

	m, cmd := press(m, "tab")
	assert.Equal(t, domain.KindManga, m.kind)
	assert.Empty(t, m.rows)
	assert.Equal(t, 1, m.gen)
	require.NotNil(t, cmd)

	// A late message from the first load is dropped
	next, _ := m.Update(ItemLoadedMsg{Gen: 0, Item: okItem("99", "stale")})
	m = next.(Model)
	assert.Empty(t, m.rows)

	m = drain(t, m, MaterializeCmd(context.Background(), svc, "alice", domain.KindManga, m.gen))
	require.Len(t, m.rows, 1)
	assert.Equal(t, domain.MediaID("2"), m.rows[0].id)
}

func TestModel_NavigateAndRemove(t *testing.T) {
	svc := &fakeCollections{items: map[domain.MediaKind][]collection.Item{
		domain.KindAnime: {okItem("1", "A"), okItem("2", "B"), okItem("3", "C")},
	}}
	m := loaded(t, svc, "alice")

	m, _ = press(m, "j", "j", "j")
	assert.Equal(t, 2, m.cursor)
	m, _ = press(m, "k")
	assert.Equal(t, 1, m.cursor)

	m, cmd := press(m, "d")
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, RemovedMsg{}, msg)
	assert.Equal(t, []domain.MediaID{"2"}, svc.removed)

	next, _ := m.Update(msg)
	m = next.(Model)
	require.Len(t, m.rows, 2)
	assert.Equal(t, domain.MediaID("3"), m.rows[1].id)
	assert.Equal(t, "removed 2", m.status)
}

func TestModel_Filter(t *testing.T) {
	svc := &fakeCollections{items: map[domain.MediaKind][]collection.Item{
		domain.KindAnime: {okItem("1", "Cowboy Bebop"), okItem("2", "Naruto"), okItem("3", "Trigun")},
	}}
	m := loaded(t, svc, "alice")

	m, _ = press(m, "/", "n", "a", "r")
	assert.True(t, m.filtering)
	assert.Equal(t, []int{1}, m.filterIdx)

	m, _ = press(m, "enter")
	assert.False(t, m.filtering)
	sel, found := m.selected()
	require.True(t, found)
	assert.Equal(t, domain.MediaID("2"), sel.id)

	m, _ = press(m, "esc")
	assert.Nil(t, m.filterIdx)
	assert.Equal(t, 3, m.visibleCount())
}

func TestModel_QuitCancelsLoad(t *testing.T) {
	m := NewModel(&fakeCollections{}, "alice", domain.KindAnime)
	cancelled := false
	m.cancel = func() { cancelled = true }

	_, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.True(t, cancelled)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
