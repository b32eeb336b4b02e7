package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultTaskCategory is assigned to tasks derived from markers.
const DefaultTaskCategory = "mix-fix"

// Task is an actionable item derived from a marker. Conversion is
// one-directional: the task keeps a link back to the marker and the
// timestamp it was anchored to at conversion time.
type Task struct {
	gorm.Model
	RecordingID            uint           `json:"recordingId" gorm:"index:idx_tasks_recording_id"`
	LinkedMarkerID         uint           `json:"linkedMarkerId" gorm:"index:idx_tasks_linked_marker_id"`
	LinkedTimestampSeconds float64        `json:"linkedTimestampSeconds"`
	Category               string         `json:"category" gorm:"size:63"`
	Text                   string         `json:"text" gorm:"size:2047"`
	Done                   bool           `json:"done"`
	Due                    datatypes.Date `json:"due,omitempty"`
	Meta                   datatypes.JSON `json:"meta,omitempty"`
}

func (*Task) TableName() string {
	return "tasks"
}
