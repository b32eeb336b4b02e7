package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		ts       float64
		duration float64
		want     float64
	}{
		{"within range", 42.0, 180.0, 42.0},
		{"negative clamps to zero", -5.0, 180.0, 0},
		{"beyond duration clamps to duration", 500.0, 180.0, 180.0},
		{"exactly zero", 0, 180.0, 0},
		{"exactly duration", 180.0, 180.0, 180.0},
		{"zero duration", 12.0, 0, 0},
		{"negative duration treated as zero", 12.0, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampTimestamp(tt.ts, tt.duration))
		})
	}
}

func TestMarkerType_Valid(t *testing.T) {
	for _, mt := range MarkerTypes {
		assert.True(t, mt.Valid(), "expected %q to be valid", mt)
	}
	assert.False(t, MarkerType("bookmark").Valid())
	assert.False(t, MarkerType("").Valid())
}

func TestMarkerType_Next_Cycles(t *testing.T) {
	seen := map[MarkerType]bool{}
	mt := MarkerNote
	for range MarkerTypes {
		seen[mt] = true
		mt = mt.Next()
	}
	assert.Equal(t, MarkerNote, mt, "cycling through all types returns to start")
	assert.Len(t, seen, len(MarkerTypes))

	assert.Equal(t, MarkerNote, MarkerType("junk").Next())
}

func TestMarkerPatch_Apply(t *testing.T) {
	m := Marker{
		TimestampSeconds: 10.0,
		Type:             MarkerNote,
		Text:             "verse vocal low",
	}

	ts := 42.0
	mt := MarkerTask
	patch := MarkerPatch{TimestampSeconds: &ts, Type: &mt}
	require.False(t, patch.Empty())

	patch.Apply(&m)
	assert.Equal(t, 42.0, m.TimestampSeconds)
	assert.Equal(t, MarkerTask, m.Type)
	assert.Equal(t, "verse vocal low", m.Text, "nil field left untouched")
	assert.False(t, m.UpdatedAt.IsZero())
}

func TestMarkerPatch_Empty(t *testing.T) {
	assert.True(t, MarkerPatch{}.Empty())

	text := "chorus too loud"
	assert.False(t, MarkerPatch{Text: &text}.Empty())
}
