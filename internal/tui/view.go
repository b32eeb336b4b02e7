package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/timeline"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	playedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	editorStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)

	markerStyles = map[model.MarkerType]lipgloss.Style{
		model.MarkerNote:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		model.MarkerMix:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		model.MarkerTask:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.MarkerIdea:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		model.MarkerIssue: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}

	markerGlyphs = map[model.MarkerType]string{
		model.MarkerNote:  "●",
		model.MarkerMix:   "◆",
		model.MarkerTask:  "✔",
		model.MarkerIdea:  "○",
		model.MarkerIssue: "▲",
	}
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n")
	b.WriteString(m.timelineFrame())
	b.WriteString("\n")

	if _, open := m.editor.Current(); open {
		b.WriteString(m.editorOverlay())
		b.WriteString("\n")
	}

	b.WriteString(m.footer())
	return b.String()
}

func (m Model) titleLine() string {
	rec := m.session.GetRecording()

	transport := "⏸"
	if m.state.Playing {
		transport = "▶"
	}
	pos := formatClock(m.state.PositionSeconds)
	dur := formatClock(m.state.DurationSeconds)

	left := titleStyle.Render(" mixnote ") + rec.Title
	right := fmt.Sprintf("%s %s / %s  %s", transport, pos, dur,
		dimStyle.Render(fmt.Sprintf("%.1fpx/s", m.mapper.PxPerSec())))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// timelineFrame renders the ruler row and the marker lane inside a border.
// Screen rows are fixed so the mouse handler can map coordinates back.
func (m Model) timelineFrame() string {
	w := m.laneWidth()
	ruler := []rune(strings.Repeat("─", w))
	lane := []rune(strings.Repeat(" ", w))

	// minute ticks
	from, to := m.mapper.VisibleRange()
	for ts := nextMinute(from); ts <= to; ts += 60 {
		x := m.mapper.TimeToX(ts)
		if x >= 0 && x < w {
			ruler[x] = '┼'
		}
	}

	laneOut := make([]string, w)
	for i, r := range lane {
		laneOut[i] = string(r)
	}

	// played portion of the ruler gets tinted
	playheadX := m.mapper.TimeToX(m.state.PositionSeconds)
	rulerOut := make([]string, w)
	for i, r := range ruler {
		s := string(r)
		if i < playheadX {
			s = playedStyle.Render(s)
		} else {
			s = dimStyle.Render(s)
		}
		rulerOut[i] = s
	}
	if playheadX >= 0 && playheadX < w {
		rulerOut[playheadX] = playedStyle.Render("▼")
	}

	for _, region := range timeline.BuildRegions(m.mapper, m.visibleMarkers()) {
		first := region.Markers[0]
		glyph := markerGlyphs[first.Type]
		if glyph == "" {
			glyph = "●"
		}
		if len(region.Markers) > 1 {
			glyph = fmt.Sprintf("%d", min(len(region.Markers), 9))
		}
		style, ok := markerStyles[first.Type]
		if !ok {
			style = markerStyles[model.MarkerNote]
		}
		if m.store.Dragging(first.ID) {
			style = style.Copy().Bold(true).Underline(true)
		}
		laneOut[region.X] = style.Render(glyph)
	}
	if playheadX >= 0 && playheadX < w && laneOut[playheadX] == " " {
		laneOut[playheadX] = playedStyle.Render("│")
	}

	content := strings.Join(rulerOut, "") + "\n" + strings.Join(laneOut, "")
	return frameStyle.Width(w + 2).Render(content)
}

func (m Model) editorOverlay() string {
	draft, open := m.editor.Current()
	if !open {
		return ""
	}

	style, ok := markerStyles[draft.Type]
	if !ok {
		style = markerStyles[model.MarkerNote]
	}
	header := fmt.Sprintf("%s %s at %s",
		style.Render(markerGlyphs[draft.Type]),
		strings.ToUpper(string(draft.Type)),
		formatClock(draft.TimestampSeconds),
	)
	if draft.IsNew {
		header += " " + noticeStyle.Render("(new)")
	}
	hints := dimStyle.Render("ctrl+s save · ctrl+t type · ctrl+k to task · ctrl+d delete · esc close")

	return editorStyle.Width(m.laneWidth() + 2).Render(
		header + "\n" + m.textarea.View() + "\n" + hints,
	)
}

func (m Model) footer() string {
	if m.notice != "" {
		return " " + noticeStyle.Render(m.notice)
	}
	return " " + dimStyle.Render(
		"space play · m marker · n/p jump · ←/→ seek · +/- zoom · click/drag markers · q quit",
	)
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func nextMinute(ts float64) float64 {
	if rem := int(ts) % 60; rem != 0 {
		return float64(int(ts) - rem + 60)
	}
	return ts
}
