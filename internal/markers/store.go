// Package markers holds the in-session view of a recording's markers. The
// remote backend is the source of truth: apart from the drag overlay, the
// local collection only changes after the backend confirms a mutation.
package markers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/repository"
)

// DeadZoneSeconds is the half-width of the playhead dead zone for marker
// navigation. A marker within this distance of the playhead is neither
// "next" nor "previous", so repeated jumps never get stuck on the marker
// just landed on.
const DeadZoneSeconds = 0.5

// Store is the marker collection for the loaded recording. All methods are
// safe for concurrent use.
type Store struct {
	backend repository.Backend
	log     *slog.Logger

	mu          sync.RWMutex
	recordingID uint
	duration    float64
	confirmed   []model.Marker

	// dragging maps marker id to its provisional timestamp while a drag
	// gesture is in flight. Only the rendered view sees these values;
	// confirmed state is untouched until EndDrag succeeds.
	dragging map[uint]float64

	subs []chan struct{}
}

// NewStore creates a store over a backend.
func NewStore(backend repository.Backend, log *slog.Logger) *Store {
	return &Store{
		backend:  backend,
		log:      log,
		dragging: map[uint]float64{},
	}
}

// Load replaces the collection with the markers of recordingID. duration is
// used to clamp timestamps on later mutations.
func (s *Store) Load(ctx context.Context, recordingID uint, duration float64) error {
	markers, err := s.backend.ListMarkers(ctx, recordingID)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrRequestFailed, err)
	}

	s.mu.Lock()
	s.recordingID = recordingID
	s.duration = duration
	s.confirmed = markers
	s.sortLocked()
	s.dragging = map[uint]float64{}
	s.mu.Unlock()

	s.log.Info("markers loaded", "recordingID", recordingID, "count", len(markers))
	s.notify()
	return nil
}

// View returns the markers ascending by timestamp, with any in-flight drag
// position applied. The returned slice is a copy.
func (s *Store) View() []model.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Marker, len(s.confirmed))
	copy(out, s.confirmed)
	if len(s.dragging) > 0 {
		for i := range out {
			if ts, ok := s.dragging[out[i].ID]; ok {
				out[i].TimestampSeconds = ts
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].TimestampSeconds < out[j].TimestampSeconds
		})
	}
	return out
}

// Get returns the confirmed marker with the given id.
func (s *Store) Get(id uint) (model.Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.confirmed {
		if m.ID == id {
			return m, true
		}
	}
	return model.Marker{}, false
}

// Count returns the number of confirmed markers.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.confirmed)
}

// Create persists a new marker and, once confirmed, adds it to the
// collection. The timestamp is clamped to the recording before the request
// goes out. On failure the collection is unchanged.
func (s *Store) Create(ctx context.Context, m model.Marker) (model.Marker, error) {
	s.mu.RLock()
	m.RecordingID = s.recordingID
	m.TimestampSeconds = model.ClampTimestamp(m.TimestampSeconds, s.duration)
	s.mu.RUnlock()

	if m.Type == "" {
		m.Type = model.MarkerNote
	}

	if err := s.backend.CreateMarker(ctx, &m); err != nil {
		s.log.Error("marker create rejected", "error", err)
		return model.Marker{}, fmt.Errorf("%w: %v", repository.ErrRequestFailed, err)
	}

	s.mu.Lock()
	s.confirmed = append(s.confirmed, m)
	s.sortLocked()
	s.mu.Unlock()

	s.notify()
	return m, nil
}

// Update applies a patch and, once confirmed, replaces the stored marker
// with the backend's version. On failure the collection is unchanged.
func (s *Store) Update(ctx context.Context, id uint, patch model.MarkerPatch) (model.Marker, error) {
	if patch.Empty() {
		m, ok := s.Get(id)
		if !ok {
			return model.Marker{}, fmt.Errorf("marker %d not found", id)
		}
		return m, nil
	}

	if patch.TimestampSeconds != nil {
		s.mu.RLock()
		ts := model.ClampTimestamp(*patch.TimestampSeconds, s.duration)
		s.mu.RUnlock()
		patch.TimestampSeconds = &ts
	}

	updated, err := s.backend.UpdateMarker(ctx, id, patch)
	if err != nil {
		s.log.Error("marker update rejected", "markerID", id, "error", err)
		return model.Marker{}, fmt.Errorf("%w: %v", repository.ErrRequestFailed, err)
	}

	s.mu.Lock()
	for i := range s.confirmed {
		if s.confirmed[i].ID == id {
			s.confirmed[i] = updated
			break
		}
	}
	s.sortLocked()
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// Delete removes a marker once the backend confirms. On failure the
// collection is unchanged.
func (s *Store) Delete(ctx context.Context, id uint) error {
	if err := s.backend.DeleteMarker(ctx, id); err != nil {
		s.log.Error("marker delete rejected", "markerID", id, "error", err)
		return fmt.Errorf("%w: %v", repository.ErrRequestFailed, err)
	}

	s.mu.Lock()
	for i := range s.confirmed {
		if s.confirmed[i].ID == id {
			s.confirmed = append(s.confirmed[:i], s.confirmed[i+1:]...)
			break
		}
	}
	delete(s.dragging, id)
	s.mu.Unlock()

	s.notify()
	return nil
}

// NextAfter returns the first marker whose timestamp is beyond the dead
// zone after pos.
func (s *Store) NextAfter(pos float64) (model.Marker, bool) {
	view := s.View()
	for _, m := range view {
		if m.TimestampSeconds > pos+DeadZoneSeconds {
			return m, true
		}
	}
	return model.Marker{}, false
}

// PrevBefore returns the first marker, in ascending order, whose timestamp
// is beyond the dead zone before pos. Jumping back lands on the earliest
// qualifying marker, so from the tail of the recording P rewinds to the
// start of the annotated range.
func (s *Store) PrevBefore(pos float64) (model.Marker, bool) {
	for _, m := range s.View() {
		if m.TimestampSeconds < pos-DeadZoneSeconds {
			return m, true
		}
	}
	return model.Marker{}, false
}

// BeginDrag starts a drag gesture on a marker. The overlay starts at the
// confirmed timestamp.
func (s *Store) BeginDrag(id uint) bool {
	m, ok := s.Get(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.dragging[id] = m.TimestampSeconds
	s.mu.Unlock()
	s.notify()
	return true
}

// DragTo moves the overlay position of an in-flight drag. No request is
// issued; only the rendered view changes.
func (s *Store) DragTo(id uint, ts float64) {
	s.mu.Lock()
	if _, ok := s.dragging[id]; !ok {
		s.mu.Unlock()
		return
	}
	s.dragging[id] = model.ClampTimestamp(ts, s.duration)
	s.mu.Unlock()
	s.notify()
}

// EndDrag commits a drag gesture with a single update request. A gesture
// that never moved the overlay issues no request at all. On failure the
// overlay is dropped and the marker snaps back to its confirmed timestamp.
func (s *Store) EndDrag(ctx context.Context, id uint) (model.Marker, error) {
	s.mu.Lock()
	ts, ok := s.dragging[id]
	delete(s.dragging, id)
	s.mu.Unlock()

	m, found := s.Get(id)
	if !ok {
		if !found {
			return model.Marker{}, fmt.Errorf("marker %d not found", id)
		}
		return m, nil
	}
	if found && m.TimestampSeconds == ts {
		s.notify()
		return m, nil
	}

	updated, err := s.Update(ctx, id, model.MarkerPatch{TimestampSeconds: &ts})
	if err != nil {
		// Update already logged; the view reverts because the overlay
		// entry is gone.
		s.notify()
		return model.Marker{}, err
	}
	return updated, nil
}

// CancelDrag drops a drag gesture without issuing a request.
func (s *Store) CancelDrag(id uint) {
	s.mu.Lock()
	delete(s.dragging, id)
	s.mu.Unlock()
	s.notify()
}

// Dragging reports whether a drag gesture is in flight for id.
func (s *Store) Dragging(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dragging[id]
	return ok
}

// Subscribe returns a channel that receives a tick whenever the rendered
// view may have changed. Ticks are coalesced.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// sortLocked keeps the confirmed slice ascending by timestamp with id as a
// stable tiebreak for equal timestamps. Caller holds s.mu.
func (s *Store) sortLocked() {
	sort.SliceStable(s.confirmed, func(i, j int) bool {
		if s.confirmed[i].TimestampSeconds != s.confirmed[j].TimestampSeconds {
			return s.confirmed[i].TimestampSeconds < s.confirmed[j].TimestampSeconds
		}
		return s.confirmed[i].ID < s.confirmed[j].ID
	})
}
