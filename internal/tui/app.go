// Package tui is the interactive watchlist browser.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/animewiki/internal/domain"
	"github.com/mmcdole/animewiki/internal/tui/styles"
)

const statusTimeout = 3 * time.Second

// row is one collection id and what resolving it produced
type row struct {
	id    domain.MediaID
	entry *domain.Entry
	err   error
}

func (r row) title() string {
	if r.entry != nil {
		return r.entry.DisplayTitle()
	}
	return string(r.id)
}

// Model is the Bubble Tea model for the watchlist browser
type Model struct {
	svc  Collections
	user domain.UserHandle
	kind domain.MediaKind
	keys KeyMap

	// Current load
	rows    []row
	total   int
	loading bool
	gen     int
	cancel  context.CancelFunc
	initCmd tea.Cmd

	cursor int
	offset int

	// Filter
	filterInput textinput.Model
	filtering   bool
	filterIdx   []int // nil when no filter is applied
	matched     map[int][]int

	spinner  spinner.Model
	help     help.Model
	showHelp bool

	width  int
	height int
	status string
	err    error
}

// NewModel creates a browser over user's collection of kind
func NewModel(svc Collections, user domain.UserHandle, kind domain.MediaKind) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = styles.FilterPromptStyle
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		svc:         svc,
		user:        user,
		kind:        kind,
		keys:        DefaultKeyMap(),
		loading:     true,
		cancel:      cancel,
		initCmd:     MaterializeCmd(ctx, svc, user, kind, 0),
		filterInput: ti,
		spinner:     sp,
		help:        help.New(),
		width:       80,
		height:      24,
	}
}

// Init starts the first load
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initCmd)
}

// reload cancels any in-flight load and starts a new one
func (m Model) reload() (Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.gen++
	m.rows = nil
	m.total = 0
	m.loading = true
	m.err = nil
	m.cursor, m.offset = 0, 0
	m.clearFilter()
	return m, tea.Batch(m.spinner.Tick, MaterializeCmd(ctx, m.svc, m.user, m.kind, m.gen))
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case LoadStartedMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.total = msg.Total
		return m, msg.NextCmd

	case ItemLoadedMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.rows = append(m.rows, row{id: msg.Item.ID, entry: msg.Item.Entry, err: msg.Item.Err})
		if m.filterActive() {
			m.applyFilter()
		}
		return m, msg.NextCmd

	case LoadDoneMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.loading = false
		if failed := m.failedCount(); failed > 0 {
			m.status = fmt.Sprintf("%d of %d unavailable", failed, len(m.rows))
			return m, ClearStatusCmd(statusTimeout)
		}
		return m, nil

	case RemovedMsg:
		if msg.Kind != m.kind {
			return m, nil
		}
		m.removeRow(msg.ID)
		m.status = "removed " + string(msg.ID)
		return m, ClearStatusCmd(statusTimeout)

	case ClearStatusMsg:
		m.status = ""
		return m, nil

	case LoadFailedMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.err = ErrMsg{Err: msg.Err, Context: "loading watchlist"}
		return m, nil

	case ErrMsg:
		m.err = msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.clearFilter()
			return m, nil
		case key.Matches(msg, m.keys.Accept):
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Home):
		m.cursor, m.offset = 0, 0
	case key.Matches(msg, m.keys.End):
		m.cursor = m.visibleCount() - 1
		m.clampCursor()

	case key.Matches(msg, m.keys.Switch):
		if m.kind == domain.KindAnime {
			m.kind = domain.KindManga
		} else {
			m.kind = domain.KindAnime
		}
		return m.reload()

	case key.Matches(msg, m.keys.Reload):
		return m.reload()

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue("")
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Escape):
		m.clearFilter()

	case key.Matches(msg, m.keys.Remove):
		if r, ok := m.selected(); ok {
			return m, RemoveCmd(m.svc, m.user, m.kind, r.id)
		}

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}

	return m, nil
}

func (m *Model) filterActive() bool {
	return m.filterInput.Value() != ""
}

func (m *Model) applyFilter() {
	query := m.filterInput.Value()
	if query == "" {
		m.filterIdx = nil
		m.matched = nil
		m.clampCursor()
		return
	}
	m.filterIdx, m.matched = filterRows(query, m.rows)
	m.clampCursor()
}

func (m *Model) clearFilter() {
	m.filtering = false
	m.filterInput.Blur()
	m.filterInput.SetValue("")
	m.filterIdx = nil
	m.matched = nil
	m.clampCursor()
}

// visible maps a cursor position to a row index
func (m *Model) visible(i int) int {
	if m.filterIdx != nil {
		return m.filterIdx[i]
	}
	return i
}

func (m *Model) visibleCount() int {
	if m.filterIdx != nil {
		return len(m.filterIdx)
	}
	return len(m.rows)
}

func (m *Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= m.visibleCount() {
		return row{}, false
	}
	return m.rows[m.visible(m.cursor)], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := m.visibleCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	height := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+height {
		m.offset = m.cursor - height + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) removeRow(id domain.MediaID) {
	for i, r := range m.rows {
		if r.id == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			if m.total > 0 {
				m.total--
			}
			break
		}
	}
	if m.filterActive() {
		m.applyFilter()
	}
	m.clampCursor()
}

func (m *Model) failedCount() int {
	var n int
	for _, r := range m.rows {
		if r.err != nil {
			n++
		}
	}
	return n
}
