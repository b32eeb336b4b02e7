// Package nav translates user intents into engine, store and editor calls.
// It owns the rule that new markers anchor to the playhead, not to wherever
// the pointer happens to be, and that marker jumps move the playhead.
package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mixnote/mixnote/internal/dispatch"
	"github.com/mixnote/mixnote/internal/editor"
	"github.com/mixnote/mixnote/internal/markers"
	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/playback"
	"github.com/mixnote/mixnote/internal/session"
	"github.com/mixnote/mixnote/internal/tasks"
	"github.com/mixnote/mixnote/internal/timeline"
)

// Transport is the slice of the playback engine the controller needs.
type Transport interface {
	Current() playback.State
	Toggle() error
	Seek(seconds float64) error
}

// hitSlop is how many cells a click may miss a region by and still hit it.
const hitSlop = 1

// Controller wires user intents to the domain components. Mouse operations
// take viewport x coordinates and go through the mapper; keyboard
// operations are coordinate-free.
type Controller struct {
	transport Transport
	store     *markers.Store
	editor    *editor.Editor
	mapper    *timeline.Mapper
	converter *tasks.Converter
	session   *session.Context
	log       *slog.Logger

	notices chan string

	// dragMu guards dragID. Drag gestures arrive on the UI goroutine but
	// the commit runs on a command goroutine.
	dragMu sync.Mutex
	// dragID is the marker under an in-flight drag gesture, zero when
	// none.
	dragID uint
}

// NewController creates a controller over the session's components.
func NewController(
	transport Transport,
	store *markers.Store,
	ed *editor.Editor,
	mapper *timeline.Mapper,
	converter *tasks.Converter,
	sess *session.Context,
	log *slog.Logger,
) *Controller {
	return &Controller{
		transport: transport,
		store:     store,
		editor:    ed,
		mapper:    mapper,
		converter: converter,
		session:   sess,
		log:       log,
		notices:   make(chan string, 8),
	}
}

// Notices delivers one-line status messages for the UI footer. Messages are
// dropped rather than blocking when nobody listens.
func (c *Controller) Notices() <-chan string {
	return c.notices
}

func (c *Controller) notice(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	select {
	case c.notices <- msg:
	default:
	}
}

// RegisterCommands binds the keyboard commands on a dispatcher.
func (c *Controller) RegisterCommands(d *dispatch.Dispatcher) {
	d.Register("playback:toggle", func(dispatch.Event) (any, error) {
		return nil, c.TogglePlayback()
	})
	d.Register("marker:create", func(dispatch.Event) (any, error) {
		return nil, c.CreateAtPlayhead(context.Background())
	}, dispatch.Logged())
	d.Register("marker:next", func(dispatch.Event) (any, error) {
		return nil, c.NextMarker()
	})
	d.Register("marker:prev", func(dispatch.Event) (any, error) {
		return nil, c.PrevMarker()
	})
	d.Register("playback:seek", func(e dispatch.Event) (any, error) {
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("playback:seek wants a delta, got %d args", len(e.Args))
		}
		delta, err := strconv.ParseFloat(e.Args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("playback:seek delta %q: %w", e.Args[0], err)
		}
		return nil, c.SeekBy(delta)
	})
	d.Register("timeline:zoom", func(e dispatch.Event) (any, error) {
		if len(e.Args) != 2 {
			return nil, fmt.Errorf("timeline:zoom wants direction and x, got %d args", len(e.Args))
		}
		x, err := strconv.Atoi(e.Args[1])
		if err != nil {
			return nil, fmt.Errorf("timeline:zoom x %q: %w", e.Args[1], err)
		}
		c.WheelZoom(e.Args[0] == "in", x)
		return nil, nil
	})
	d.Register("task:convert", func(dispatch.Event) (any, error) {
		return nil, c.ConvertOpenMarker(context.Background())
	}, dispatch.Logged())
}

// TogglePlayback flips play/pause and counts nothing; scrubbing is free.
func (c *Controller) TogglePlayback() error {
	return c.transport.Toggle()
}

// CreateAtPlayhead creates a marker at the current playhead position and
// opens it in the editor. The anchor is always the engine position, even
// when the gesture came from the pointer hovering elsewhere.
func (c *Controller) CreateAtPlayhead(ctx context.Context) error {
	st := c.transport.Current()
	if !st.Loaded {
		c.notice("no recording loaded")
		return nil
	}

	m, err := c.store.Create(ctx, model.Marker{
		TimestampSeconds: st.PositionSeconds,
		Type:             model.MarkerNote,
	})
	if err != nil {
		c.notice("marker create failed")
		return err
	}

	c.session.Count(func(s *session.Stats) { s.MarkersCreated++ })
	c.mapper.EnsureVisible(m.TimestampSeconds)
	c.editor.OpenNew(m)
	return nil
}

// NextMarker jumps the playhead to the next marker past the dead zone.
func (c *Controller) NextMarker() error {
	st := c.transport.Current()
	if !st.Loaded {
		return nil
	}
	m, ok := c.store.NextAfter(st.PositionSeconds)
	if !ok {
		c.notice("no marker ahead")
		return nil
	}
	return c.jumpTo(m)
}

// PrevMarker jumps the playhead to the previous marker past the dead zone.
func (c *Controller) PrevMarker() error {
	st := c.transport.Current()
	if !st.Loaded {
		return nil
	}
	m, ok := c.store.PrevBefore(st.PositionSeconds)
	if !ok {
		c.notice("no marker behind")
		return nil
	}
	return c.jumpTo(m)
}

func (c *Controller) jumpTo(m model.Marker) error {
	if err := c.transport.Seek(m.TimestampSeconds); err != nil {
		return err
	}
	c.session.Count(func(s *session.Stats) { s.Seeks++ })
	c.mapper.EnsureVisible(m.TimestampSeconds)
	return nil
}

// SeekBy nudges the playhead by delta seconds.
func (c *Controller) SeekBy(delta float64) error {
	st := c.transport.Current()
	if !st.Loaded {
		return nil
	}
	if err := c.transport.Seek(st.PositionSeconds + delta); err != nil {
		return err
	}
	c.session.Count(func(s *session.Stats) { s.Seeks++ })
	return nil
}

// SeekToX scrubs the playhead to the time under a viewport x.
func (c *Controller) SeekToX(x int) error {
	if !c.transport.Current().Loaded {
		return nil
	}
	if err := c.transport.Seek(c.mapper.XToTime(x)); err != nil {
		return err
	}
	c.session.Count(func(s *session.Stats) { s.Seeks++ })
	return nil
}

// WheelZoom zooms around the cell under the pointer. A whole wheel gesture
// lands as individual notches; each notch is one mapper update.
func (c *Controller) WheelZoom(in bool, x int) {
	factor := 1.25
	if !in {
		factor = 1 / factor
	}
	c.mapper.ZoomBy(factor, x)
}

// ClickRegion opens the editor on the region under a viewport x. A miss
// closes an open editor and scrubs the playhead to the clicked time, so a
// click on empty lane is still a seek.
func (c *Controller) ClickRegion(x int) error {
	region, ok := timeline.HitTest(c.regions(), x, hitSlop)
	if !ok {
		c.editor.Cancel()
		return c.SeekToX(x)
	}
	c.editor.Open(region.Markers[0])
	return nil
}

// BeginDragAt starts dragging the marker under a viewport x. Returns false
// on a miss.
func (c *Controller) BeginDragAt(x int) bool {
	region, ok := timeline.HitTest(c.regions(), x, hitSlop)
	if !ok {
		return false
	}
	id := region.Markers[0].ID
	if !c.store.BeginDrag(id) {
		return false
	}
	c.dragMu.Lock()
	c.dragID = id
	c.dragMu.Unlock()
	return true
}

// DragTo moves the in-flight drag to the time under a viewport x.
func (c *Controller) DragTo(x int) {
	c.dragMu.Lock()
	id := c.dragID
	c.dragMu.Unlock()
	if id == 0 {
		return
	}
	c.store.DragTo(id, c.mapper.XToTime(x))
}

// EndDrag commits the in-flight drag with at most one update request.
func (c *Controller) EndDrag(ctx context.Context) error {
	c.dragMu.Lock()
	id := c.dragID
	c.dragID = 0
	c.dragMu.Unlock()
	if id == 0 {
		return nil
	}

	if _, err := c.store.EndDrag(ctx, id); err != nil {
		c.notice("marker move failed, snapped back")
		return err
	}
	c.session.Count(func(s *session.Stats) { s.MarkersMoved++ })
	return nil
}

// CancelDrag abandons the in-flight drag without a request.
func (c *Controller) CancelDrag() {
	c.dragMu.Lock()
	id := c.dragID
	c.dragID = 0
	c.dragMu.Unlock()
	if id == 0 {
		return
	}
	c.store.CancelDrag(id)
}

// Dragging reports whether a drag gesture is in flight.
func (c *Controller) Dragging() bool {
	c.dragMu.Lock()
	defer c.dragMu.Unlock()
	return c.dragID != 0
}

// ConvertOpenMarker converts the marker open in the editor into a task.
// Drift (task created, marker retype failed) is surfaced as a notice and
// not returned as an error; the session moves on.
func (c *Controller) ConvertOpenMarker(ctx context.Context) error {
	draft, open := c.editor.Current()
	if !open {
		c.notice("open a marker to convert it")
		return nil
	}

	task, err := c.converter.Convert(ctx, draft.MarkerID)
	switch {
	case errors.Is(err, tasks.ErrMarkerTypeDrift):
		c.session.Count(func(s *session.Stats) { s.TasksConverted++ })
		c.notice("task #%d created, marker type not updated", task.ID)
		c.editor.Cancel()
		return nil
	case err != nil:
		c.notice("task conversion failed")
		return err
	}

	c.session.Count(func(s *session.Stats) { s.TasksConverted++ })
	c.notice("task #%d created at %s", task.ID, formatTimestamp(task.LinkedTimestampSeconds))
	c.editor.Cancel()
	return nil
}

func (c *Controller) regions() []timeline.Region {
	return timeline.BuildRegions(c.mapper, c.store.View())
}

func formatTimestamp(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
