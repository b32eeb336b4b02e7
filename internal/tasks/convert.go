// Package tasks turns markers into actionable tasks on the backend.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mixnote/mixnote/internal/markers"
	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/repository"
)

// ErrMarkerTypeDrift reports that the task was created but retyping the
// source marker failed. The task is real and must not be rolled back; the
// marker just still shows its old type until the next successful edit.
var ErrMarkerTypeDrift = errors.New("task created but marker type not updated")

// Converter creates tasks from markers. Conversion is two backend calls:
// create the task, then retype the marker to "task" so the timeline shows
// it as converted.
type Converter struct {
	backend repository.Backend
	store   *markers.Store
	log     *slog.Logger
}

// NewConverter creates a converter over the backend and the live marker
// store.
func NewConverter(backend repository.Backend, store *markers.Store, log *slog.Logger) *Converter {
	return &Converter{backend: backend, store: store, log: log}
}

// Convert creates a task linked to the marker and then retypes the marker.
// When the task is created but the retype fails, the task is returned along
// with ErrMarkerTypeDrift; callers should surface a notice, not undo
// anything.
func (c *Converter) Convert(ctx context.Context, markerID uint) (model.Task, error) {
	m, ok := c.store.Get(markerID)
	if !ok {
		return model.Task{}, fmt.Errorf("marker %d not found", markerID)
	}

	task := model.Task{
		RecordingID:            m.RecordingID,
		LinkedMarkerID:         m.ID,
		LinkedTimestampSeconds: m.TimestampSeconds,
		Category:               model.DefaultTaskCategory,
		Text:                   m.Text,
	}
	if err := c.backend.CreateTask(ctx, &task); err != nil {
		c.log.Error("task create rejected", "markerID", markerID, "error", err)
		return model.Task{}, fmt.Errorf("%w: %v", repository.ErrRequestFailed, err)
	}

	if m.Type != model.MarkerTask {
		markerType := model.MarkerTask
		if _, err := c.store.Update(ctx, markerID, model.MarkerPatch{Type: &markerType}); err != nil {
			c.log.Warn("marker retype failed after task create",
				"markerID", markerID, "taskID", task.ID, "error", err)
			return task, fmt.Errorf("%w: %v", ErrMarkerTypeDrift, err)
		}
	}

	c.log.Info("marker converted to task", "markerID", markerID, "taskID", task.ID)
	return task, nil
}
