// Package timeline maps recording time to horizontal screen cells and back.
// The mapper is pure geometry: it knows the viewport width, the zoom level
// and the visible window, and nothing about playback or rendering.
package timeline

import (
	"math"

	"github.com/mixnote/mixnote/internal/model"
)

// DefaultMaxPxPerSec bounds zooming in when no limit is configured.
const DefaultMaxPxPerSec = 200.0

// Mapper converts between timestamps and x positions for one viewport.
// Not safe for concurrent use; the UI owns it and mutates it on its own
// goroutine.
type Mapper struct {
	duration    float64
	width       int
	pxPerSec    float64
	offset      float64 // timestamp at x == 0
	maxPxPerSec float64
}

// NewMapper creates a mapper showing the whole recording across width
// cells.
func NewMapper(duration float64, width int, maxPxPerSec float64) *Mapper {
	if maxPxPerSec <= 0 {
		maxPxPerSec = DefaultMaxPxPerSec
	}
	m := &Mapper{
		duration:    duration,
		width:       width,
		maxPxPerSec: maxPxPerSec,
	}
	m.pxPerSec = m.minPxPerSec()
	return m
}

// minPxPerSec is the zoom level at which the whole recording fits the
// viewport. Zooming out never goes past it.
func (m *Mapper) minPxPerSec() float64 {
	if m.duration <= 0 || m.width <= 0 {
		return 1
	}
	return float64(m.width) / m.duration
}

// Duration returns the mapped recording length in seconds.
func (m *Mapper) Duration() float64 { return m.duration }

// Width returns the viewport width in cells.
func (m *Mapper) Width() int { return m.width }

// PxPerSec returns the current zoom level.
func (m *Mapper) PxPerSec() float64 { return m.pxPerSec }

// Resize changes the viewport width, preserving the leftmost visible time
// where possible.
func (m *Mapper) Resize(width int) {
	m.width = width
	m.clampZoom()
	m.clampOffset()
}

// SetDuration changes the mapped recording length.
func (m *Mapper) SetDuration(duration float64) {
	m.duration = duration
	m.clampZoom()
	m.clampOffset()
}

// TimeToX maps a timestamp to a viewport x. The result may lie outside
// [0, width) when the timestamp is not visible.
func (m *Mapper) TimeToX(ts float64) int {
	return int(math.Round((ts - m.offset) * m.pxPerSec))
}

// XToTime maps a viewport x to a timestamp, clamped to the recording.
func (m *Mapper) XToTime(x int) float64 {
	ts := m.offset + float64(x)/m.pxPerSec
	return model.ClampTimestamp(ts, m.duration)
}

// Visible reports whether a timestamp falls inside the viewport.
func (m *Mapper) Visible(ts float64) bool {
	x := m.TimeToX(ts)
	return x >= 0 && x < m.width
}

// VisibleRange returns the first and last visible timestamp.
func (m *Mapper) VisibleRange() (from, to float64) {
	return m.XToTime(0), m.XToTime(m.width - 1)
}

// ZoomBy scales the zoom level by factor, keeping the time under anchorX
// stationary. The level is clamped between whole-recording fit and the
// configured maximum.
func (m *Mapper) ZoomBy(factor float64, anchorX int) {
	if factor <= 0 {
		return
	}
	anchor := m.XToTime(anchorX)
	m.pxPerSec *= factor
	m.clampZoom()
	// Re-solve offset so anchor maps back to anchorX.
	m.offset = anchor - float64(anchorX)/m.pxPerSec
	m.clampOffset()
}

// Pan shifts the visible window by dx cells.
func (m *Mapper) Pan(dx int) {
	m.offset += float64(dx) / m.pxPerSec
	m.clampOffset()
}

// EnsureVisible pans the window the minimal amount to bring ts into view,
// with a small margin so the playhead is not glued to the edge.
func (m *Mapper) EnsureVisible(ts float64) {
	margin := float64(m.width) / m.pxPerSec * 0.1
	from, to := m.VisibleRange()
	switch {
	case ts < from:
		m.offset = ts - margin
	case ts > to:
		m.offset = ts - float64(m.width-1)/m.pxPerSec + margin
	default:
		return
	}
	m.clampOffset()
}

func (m *Mapper) clampZoom() {
	min := m.minPxPerSec()
	if m.pxPerSec < min {
		m.pxPerSec = min
	}
	if m.pxPerSec > m.maxPxPerSec {
		m.pxPerSec = m.maxPxPerSec
	}
}

// clampOffset keeps the window inside the recording. At minimum zoom the
// whole recording is visible and the offset pins to zero.
func (m *Mapper) clampOffset() {
	maxOffset := m.duration - float64(m.width)/m.pxPerSec
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.offset > maxOffset {
		m.offset = maxOffset
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
