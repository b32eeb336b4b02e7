// Package tui renders the scrubbing session: a timeline strip with markers
// and playhead, a marker editor overlay, and a notice footer. It is a
// bubbletea program; all domain work happens in the controller and the
// components it wires.
package tui

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mixnote/mixnote/internal/dispatch"
	"github.com/mixnote/mixnote/internal/editor"
	"github.com/mixnote/mixnote/internal/markers"
	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/nav"
	"github.com/mixnote/mixnote/internal/playback"
	"github.com/mixnote/mixnote/internal/session"
	"github.com/mixnote/mixnote/internal/timeline"
)

const (
	// frame rows, top to bottom: title, border, ruler, lane, border
	rowRuler = 2
	rowLane  = 3

	// horizontal inset of the timeline lane inside the frame
	laneInset = 2

	seekStepSeconds = 5.0
	noticeLifetime  = 4 * time.Second
	requestTimeout  = 10 * time.Second
)

type (
	tickMsg   time.Time
	noticeMsg string
	storeMsg  struct{}
	opDoneMsg struct{ err error }
)

// Model is the bubbletea model for a scrubbing session.
type Model struct {
	engine     *playback.Engine
	store      *markers.Store
	editor     *editor.Editor
	mapper     *timeline.Mapper
	ctrl       *nav.Controller
	dispatcher *dispatch.Dispatcher
	session    *session.Context
	log        *slog.Logger
	keys       keyMap

	refresh time.Duration

	width  int
	height int

	state       playback.State
	notice      string
	noticeUntil time.Time

	textarea textarea.Model
	editorID uint

	// pressActive and pressX track a mouse press in the lane until it
	// resolves into a click (release in place) or a drag (pointer moved
	// with the button held).
	pressActive bool
	pressX      int

	quitting bool
}

// New creates the session model. refreshHz is the render/poll cadence and
// matches the engine's position poller.
func New(
	engine *playback.Engine,
	store *markers.Store,
	ed *editor.Editor,
	mapper *timeline.Mapper,
	ctrl *nav.Controller,
	disp *dispatch.Dispatcher,
	sess *session.Context,
	refreshHz int,
	log *slog.Logger,
) Model {
	if refreshHz < 4 {
		refreshHz = 4
	}
	if refreshHz > 10 {
		refreshHz = 10
	}

	ta := textarea.New()
	ta.Placeholder = "what needs doing here?"
	ta.SetHeight(3)
	ta.CharLimit = 500

	return Model{
		engine:     engine,
		store:      store,
		editor:     ed,
		mapper:     mapper,
		ctrl:       ctrl,
		dispatcher: disp,
		session:    sess,
		log:        log,
		keys:       defaultKeyMap(),
		refresh:    time.Second / time.Duration(refreshHz),
		state:      engine.Current(),
		textarea:   ta,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.listenNotices(),
		m.listenStore(),
	)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) listenNotices() tea.Cmd {
	ch := m.ctrl.Notices()
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(msg)
	}
}

func (m Model) listenStore() tea.Cmd {
	ch := m.store.Subscribe()
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return storeMsg{}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.mapper.Resize(m.laneWidth())
		m.textarea.SetWidth(max(20, m.width-2*laneInset))
		return m, nil

	case tickMsg:
		m.state = m.engine.Current()
		if m.state.Playing {
			m.mapper.EnsureVisible(m.state.PositionSeconds)
		}
		if m.notice != "" && time.Now().After(m.noticeUntil) {
			m.notice = ""
		}
		m.syncEditorOverlay()
		return m, m.tick()

	case noticeMsg:
		m.notice = string(msg)
		m.noticeUntil = time.Now().Add(noticeLifetime)
		return m, m.listenNotices()

	case storeMsg:
		return m, m.listenStore()

	case opDoneMsg:
		if msg.err != nil {
			m.log.Warn("operation failed", "error", msg.err)
		}
		m.syncEditorOverlay()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && !m.editor.IsOpen() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.editor.IsOpen() {
		return m.handleEditorKey(msg)
	}

	playheadX := func() string {
		return strconv.Itoa(m.mapper.TimeToX(m.state.PositionSeconds))
	}

	switch {
	case key.Matches(msg, m.keys.TogglePlay):
		return m, m.command("playback:toggle")
	case key.Matches(msg, m.keys.Create):
		return m, m.command("marker:create")
	case key.Matches(msg, m.keys.Next):
		return m, m.command("marker:next")
	case key.Matches(msg, m.keys.Prev):
		return m, m.command("marker:prev")
	case key.Matches(msg, m.keys.SeekBack):
		return m, m.command("playback:seek", formatSeconds(-seekStepSeconds))
	case key.Matches(msg, m.keys.SeekFwd):
		return m, m.command("playback:seek", formatSeconds(seekStepSeconds))
	case key.Matches(msg, m.keys.ZoomIn):
		return m, m.command("timeline:zoom", "in", playheadX())
	case key.Matches(msg, m.keys.ZoomOut):
		return m, m.command("timeline:zoom", "out", playheadX())
	}

	return m, nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.editor.Cancel()
		m.syncEditorOverlay()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		m.editor.SetText(m.textarea.Value())
		return m, m.op(m.editor.Save)
	case key.Matches(msg, m.keys.Delete):
		return m, m.op(func(ctx context.Context) error {
			err := m.editor.Delete(ctx)
			if err == nil {
				m.session.Count(func(s *session.Stats) { s.MarkersDeleted++ })
			}
			return err
		})
	case key.Matches(msg, m.keys.CycleType):
		m.editor.CycleType()
		return m, nil
	case key.Matches(msg, m.keys.Convert):
		m.editor.SetText(m.textarea.Value())
		return m, m.command("task:convert")
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.editor.SetText(m.textarea.Value())
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	x := msg.X - laneInset
	inLane := msg.Y == rowLane && x >= 0 && x < m.laneWidth()
	inRuler := msg.Y == rowRuler && x >= 0 && x < m.laneWidth()

	switch msg.Type {
	case tea.MouseWheelUp:
		if inLane || inRuler {
			m.ctrl.WheelZoom(true, x)
		}
	case tea.MouseWheelDown:
		if inLane || inRuler {
			m.ctrl.WheelZoom(false, x)
		}
	case tea.MouseLeft:
		// With the button held, further MouseLeft events report the
		// pointer position; a press only becomes a drag once it moves.
		switch {
		case m.ctrl.Dragging():
			m.ctrl.DragTo(x)
		case m.pressActive && msg.Y == rowLane && x != m.pressX:
			if m.ctrl.BeginDragAt(m.pressX) {
				m.ctrl.DragTo(x)
			}
			m.pressActive = false
		case inLane && !m.pressActive:
			m.pressActive = true
			m.pressX = x
		case inRuler && !m.pressActive:
			return m, m.op(func(ctx context.Context) error { return m.ctrl.SeekToX(x) })
		}
	case tea.MouseMotion:
		if m.ctrl.Dragging() {
			m.ctrl.DragTo(x)
		}
	case tea.MouseRelease:
		if m.ctrl.Dragging() {
			m.pressActive = false
			return m, m.op(m.ctrl.EndDrag)
		}
		if m.pressActive {
			// Release in place: the press was a click. A hit opens the
			// editor, a miss closes it and scrubs to the clicked time.
			m.pressActive = false
			px := m.pressX
			return m, m.op(func(ctx context.Context) error { return m.ctrl.ClickRegion(px) })
		}
	}

	return m, nil
}

// op runs a controller call off the render loop with a bounded context.
func (m Model) op(f func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return opDoneMsg{err: f(ctx)}
	}
}

// command routes a keyboard intent through the dispatcher off the render
// loop, so every binding goes through the same logged command path.
func (m Model) command(name string, args ...string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.dispatcher.Dispatch(dispatch.Event{
			Command:   name,
			Args:      args,
			Timestamp: time.Now(),
		})
		return opDoneMsg{err: err}
	}
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// syncEditorOverlay keeps the textarea in step with the editor state
// machine: focus and seed it when a draft opens, release it when the draft
// closes or switches to another marker.
func (m *Model) syncEditorOverlay() {
	draft, open := m.editor.Current()
	if !open {
		if m.editorID != 0 {
			m.editorID = 0
			m.textarea.Reset()
			m.textarea.Blur()
		}
		return
	}
	if draft.MarkerID != m.editorID {
		m.editorID = draft.MarkerID
		m.textarea.SetValue(draft.Text)
		m.textarea.Focus()
	}
}

func (m Model) laneWidth() int {
	w := m.width - 2*laneInset
	if w < 10 {
		w = 10
	}
	return w
}

func (m Model) visibleMarkers() []model.Marker {
	return m.store.View()
}
