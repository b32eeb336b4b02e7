// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/mixnote/mixnote/internal/model"
)

// ErrRequestFailed wraps any network or storage failure on a repository call.
// Callers surface it as a dismissable notice and leave the in-memory view
// unchanged.
var ErrRequestFailed = errors.New("repository request failed")

// ErrNotFound is returned when the referenced recording, marker or task does
// not exist.
var ErrNotFound = errors.New("not found")

// Backend is the interface all persistence implementations must satisfy.
// Calls for distinct markers have no guaranteed delivery order; callers must
// serialize calls for the same marker themselves.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Recordings (read-only to the annotation core)
	GetRecording(ctx context.Context, id uint) (model.Recording, error)
	ListRecordings(ctx context.Context) ([]model.Recording, error)

	// Markers (assigns ID to the passed pointer on create)
	ListMarkers(ctx context.Context, recordingID uint) ([]model.Marker, error)
	CreateMarker(ctx context.Context, m *model.Marker) error
	UpdateMarker(ctx context.Context, id uint, patch model.MarkerPatch) (model.Marker, error)
	DeleteMarker(ctx context.Context, id uint) error

	// Tasks (assigns ID to the passed pointer on create)
	CreateTask(ctx context.Context, t *model.Task) error
}

// Healthchecker is an optional interface for backends that can verify
// connectivity to their remote collaborator.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}
