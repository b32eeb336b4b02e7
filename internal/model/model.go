package model

import (
	"time"

	"gorm.io/gorm"
)

// DatabaseModels lists every struct persisted by the local storage backend.
var DatabaseModels = []interface{}{
	&Recording{},
	&Marker{},
	&Task{},
}

// DatabaseModelsSQLite is the model list used when falling back to SQLite.
var DatabaseModelsSQLite = []interface{}{
	&Recording{},
	&Marker{},
	&Task{},
}

// Recording identifies a rendered audio mix ("bounce") that can be loaded
// for playback. Its duration is authoritative once the file has been probed
// and is read-only to the annotation core.
type Recording struct {
	gorm.Model
	Title           string  `json:"title" gorm:"size:255"`
	Path            string  `json:"path" gorm:"size:1023"`
	DurationSeconds float64 `json:"durationSeconds"`
	OwnerID         uint    `json:"ownerId" gorm:"index:idx_recordings_owner_id"`
}

func (*Recording) TableName() string {
	return "recordings"
}

// MarkerType classifies a marker on the timeline.
type MarkerType string

const (
	MarkerNote  MarkerType = "note"
	MarkerMix   MarkerType = "mix"
	MarkerTask  MarkerType = "task"
	MarkerIdea  MarkerType = "idea"
	MarkerIssue MarkerType = "issue"
)

// MarkerTypes lists all valid marker types in display order.
var MarkerTypes = []MarkerType{MarkerNote, MarkerMix, MarkerTask, MarkerIdea, MarkerIssue}

// Valid reports whether t is a known marker type.
func (t MarkerType) Valid() bool {
	switch t {
	case MarkerNote, MarkerMix, MarkerTask, MarkerIdea, MarkerIssue:
		return true
	}
	return false
}

// Next cycles to the following marker type, wrapping around.
func (t MarkerType) Next() MarkerType {
	for i, mt := range MarkerTypes {
		if mt == t {
			return MarkerTypes[(i+1)%len(MarkerTypes)]
		}
	}
	return MarkerNote
}

// Marker is a typed, timestamp-anchored annotation on a recording.
// TimestampSeconds is always within [0, recording duration]; values are
// clamped before being persisted, never rejected.
type Marker struct {
	gorm.Model
	RecordingID      uint       `json:"recordingId" gorm:"index:idx_markers_recording_id"`
	OwnerID          uint       `json:"ownerId"`
	TimestampSeconds float64    `json:"timestampSeconds" gorm:"index:idx_markers_timestamp"`
	Type             MarkerType `json:"type" gorm:"size:15"`
	Text             string     `json:"text" gorm:"size:2047"`
}

func (*Marker) TableName() string {
	return "markers"
}

// MarkerPatch is a partial update for a marker. Nil fields are untouched.
type MarkerPatch struct {
	TimestampSeconds *float64    `json:"timestampSeconds,omitempty"`
	Type             *MarkerType `json:"type,omitempty"`
	Text             *string     `json:"text,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p MarkerPatch) Empty() bool {
	return p.TimestampSeconds == nil && p.Type == nil && p.Text == nil
}

// Apply copies the patch's non-nil fields onto m and bumps UpdatedAt.
func (p MarkerPatch) Apply(m *Marker) {
	if p.TimestampSeconds != nil {
		m.TimestampSeconds = *p.TimestampSeconds
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Text != nil {
		m.Text = *p.Text
	}
	m.UpdatedAt = time.Now()
}

// ClampTimestamp bounds ts to [0, duration]. A non-positive duration clamps
// to zero.
func ClampTimestamp(ts, duration float64) float64 {
	if duration < 0 {
		duration = 0
	}
	if ts < 0 {
		return 0
	}
	if ts > duration {
		return duration
	}
	return ts
}
