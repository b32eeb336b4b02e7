// Package editor holds the marker editor state machine. The editor is
// either closed or open on exactly one marker; opening another marker
// replaces the current draft, and responses from requests issued for an
// earlier state are discarded.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mixnote/mixnote/internal/markers"
	"github.com/mixnote/mixnote/internal/model"
)

// Draft is the editable copy of the open marker. IsNew distinguishes a
// marker freshly created at the playhead from an existing one opened by a
// region click.
type Draft struct {
	MarkerID         uint
	TimestampSeconds float64
	Type             model.MarkerType
	Text             string
	IsNew            bool
}

// Editor coordinates draft edits with the marker store. Methods are safe
// for concurrent use; in-flight saves and deletes carry a generation token
// so only the request matching the current state may close or mutate the
// editor.
type Editor struct {
	store *markers.Store
	log   *slog.Logger

	mu    sync.Mutex
	open  bool
	draft Draft
	gen   uint64

	// origType and origText hold the marker state the draft started from,
	// so an unchanged save can close without a request.
	origType model.MarkerType
	origText string
}

// New creates a closed editor over a store.
func New(store *markers.Store, log *slog.Logger) *Editor {
	return &Editor{store: store, log: log}
}

// IsOpen reports whether a marker is being edited.
func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Current returns the draft when the editor is open.
func (e *Editor) Current() (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft, e.open
}

// Open starts editing an existing marker. If the editor is already open,
// the previous draft is discarded without a request; the latest open wins.
func (e *Editor) Open(m model.Marker) {
	e.openAs(m, false)
}

// OpenNew starts editing a marker that was just created, so the UI can
// treat it as unnamed rather than as a revisit.
func (e *Editor) OpenNew(m model.Marker) {
	e.openAs(m, true)
}

func (e *Editor) openAs(m model.Marker, isNew bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.open && e.draft.MarkerID == m.ID {
		return
	}
	e.gen++
	e.open = true
	e.draft = Draft{
		MarkerID:         m.ID,
		TimestampSeconds: m.TimestampSeconds,
		Type:             m.Type,
		Text:             m.Text,
		IsNew:            isNew,
	}
	e.origType = m.Type
	e.origText = m.Text
}

// SetText updates the draft text.
func (e *Editor) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		e.draft.Text = text
	}
}

// SetType updates the draft type; invalid types are ignored.
func (e *Editor) SetType(t model.MarkerType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open && t.Valid() {
		e.draft.Type = t
	}
}

// CycleType advances the draft type to the next marker type.
func (e *Editor) CycleType() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		e.draft.Type = e.draft.Type.Next()
	}
}

// Cancel closes the editor without a request. The marker keeps its
// confirmed state.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

// Save sends the draft as a partial update and closes the editor once the
// backend confirms. A draft identical to the marker it was opened from
// closes without a request. If the editor moved on to another marker while
// the request was in flight, the response is dropped and the current draft
// is left alone; a failed save keeps the draft open for retry.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return nil
	}
	if e.draft.Type == e.origType && e.draft.Text == e.origText {
		e.closeLocked()
		e.mu.Unlock()
		return nil
	}
	gen := e.gen
	draft := e.draft
	e.mu.Unlock()

	patch := model.MarkerPatch{
		Type: &draft.Type,
		Text: &draft.Text,
	}
	_, err := e.store.Update(ctx, draft.MarkerID, patch)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		e.log.Debug("dropping stale save response", "markerID", draft.MarkerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("save marker %d: %w", draft.MarkerID, err)
	}
	e.closeLocked()
	return nil
}

// Delete removes the open marker and closes the editor once the backend
// confirms. A stale response never closes a draft opened afterwards.
func (e *Editor) Delete(ctx context.Context) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return nil
	}
	gen := e.gen
	id := e.draft.MarkerID
	e.mu.Unlock()

	err := e.store.Delete(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		e.log.Debug("dropping stale delete response", "markerID", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete marker %d: %w", id, err)
	}
	e.closeLocked()
	return nil
}

// closeLocked resets to the closed state. Caller holds e.mu.
func (e *Editor) closeLocked() {
	e.gen++
	e.open = false
	e.draft = Draft{}
}
