// internal/repository/memory/memory.go
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mixnote/mixnote/internal/model"
)

// errNotFound marks lookups of ids that were never stored or already deleted.
var errNotFound = errors.New("not found")

// Backend stores recordings, markers and tasks in memory. It is the default
// backend for offline use and doubles as the test double for the store.
type Backend struct {
	mu sync.RWMutex

	recordings map[uint]model.Recording
	markers    map[uint]model.Marker
	tasks      map[uint]model.Task

	idCounter uint

	// FailNext makes the next mutating call fail, for exercising the
	// confirmed-only mutation policy in tests.
	FailNext error
}

// New creates a new memory backend.
func New() *Backend {
	return &Backend{
		recordings: make(map[uint]model.Recording),
		markers:    make(map[uint]model.Marker),
		tasks:      make(map[uint]model.Task),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) takeFailure() error {
	err := b.FailNext
	b.FailNext = nil
	return err
}

func (b *Backend) nextID() uint {
	b.idCounter++
	return b.idCounter
}

// AddRecording registers a recording so markers can reference it.
func (b *Backend) AddRecording(r model.Recording) model.Recording {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.ID == 0 {
		r.ID = b.nextID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	b.recordings[r.ID] = r
	return r
}

// GetRecording returns a recording by id.
func (b *Backend) GetRecording(_ context.Context, id uint) (model.Recording, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.recordings[id]
	if !ok {
		return model.Recording{}, fmt.Errorf("recording %d: %w", id, errNotFound)
	}
	return r, nil
}

// ListRecordings returns all recordings ordered by id.
func (b *Backend) ListRecordings(_ context.Context) ([]model.Recording, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Recording, 0, len(b.recordings))
	for _, r := range b.recordings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListMarkers returns the markers of a recording ascending by timestamp.
func (b *Backend) ListMarkers(_ context.Context, recordingID uint) ([]model.Marker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Marker, 0)
	for _, m := range b.markers {
		if m.RecordingID == recordingID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TimestampSeconds < out[j].TimestampSeconds
	})
	return out, nil
}

// CreateMarker stores a new marker and assigns its id.
func (b *Backend) CreateMarker(_ context.Context, m *model.Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(); err != nil {
		return err
	}

	m.ID = b.nextID()
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	b.markers[m.ID] = *m
	return nil
}

// UpdateMarker applies a partial update and returns the stored marker.
func (b *Backend) UpdateMarker(_ context.Context, id uint, patch model.MarkerPatch) (model.Marker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(); err != nil {
		return model.Marker{}, err
	}

	m, ok := b.markers[id]
	if !ok {
		return model.Marker{}, fmt.Errorf("marker %d: %w", id, errNotFound)
	}
	patch.Apply(&m)
	b.markers[id] = m
	return m, nil
}

// DeleteMarker removes a marker.
func (b *Backend) DeleteMarker(_ context.Context, id uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(); err != nil {
		return err
	}

	if _, ok := b.markers[id]; !ok {
		return fmt.Errorf("marker %d: %w", id, errNotFound)
	}
	delete(b.markers, id)
	return nil
}

// CreateTask stores a new task and assigns its id.
func (b *Backend) CreateTask(_ context.Context, t *model.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(); err != nil {
		return err
	}

	t.ID = b.nextID()
	t.CreatedAt = time.Now()
	b.tasks[t.ID] = *t
	return nil
}

// Tasks returns all stored tasks ordered by id, for inspection in tests.
func (b *Backend) Tasks() []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
