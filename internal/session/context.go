// Package session tracks which recording a scrubbing session is working
// on, plus running counters the stats sink reports.
package session

import (
	"sync"
	"time"

	"github.com/mixnote/mixnote/internal/model"
)

// Stats are running counters for the current session.
type Stats struct {
	Started        time.Time
	MarkersCreated int
	MarkersMoved   int
	MarkersDeleted int
	TasksConverted int
	Seeks          int
}

// Context holds the current recording and session counters.
type Context struct {
	mu        sync.RWMutex
	recording *model.Recording
	stats     Stats
}

// NewContext creates a Context with no recording loaded.
func NewContext() *Context {
	return &Context{
		recording: &model.Recording{Title: "No recording loaded"},
		stats:     Stats{Started: time.Now()},
	}
}

// GetRecording returns the current recording.
func (sc *Context) GetRecording() *model.Recording {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.recording
}

// SetRecording sets the current recording and resets the counters.
func (sc *Context) SetRecording(rec *model.Recording) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.recording = rec
	sc.stats = Stats{Started: time.Now()}
}

// Count increments one of the session counters.
func (sc *Context) Count(update func(*Stats)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	update(&sc.stats)
}

// GetStats returns a copy of the current counters.
func (sc *Context) GetStats() Stats {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.stats
}
