package timeline

import "github.com/mixnote/mixnote/internal/model"

// Region is a rendered marker cluster: every marker that maps to the same
// viewport cell at the current zoom. Clicking a region addresses its first
// marker; the rest become reachable by zooming in.
type Region struct {
	X       int
	Markers []model.Marker
}

// BuildRegions groups the visible markers by viewport cell. markers must be
// ascending by timestamp, which keeps each region's slice ordered too.
func BuildRegions(m *Mapper, markers []model.Marker) []Region {
	var regions []Region
	for _, marker := range markers {
		x := m.TimeToX(marker.TimestampSeconds)
		if x < 0 || x >= m.Width() {
			continue
		}
		if n := len(regions); n > 0 && regions[n-1].X == x {
			regions[n-1].Markers = append(regions[n-1].Markers, marker)
			continue
		}
		regions = append(regions, Region{X: x, Markers: []model.Marker{marker}})
	}
	return regions
}

// HitTest returns the region nearest to x within slop cells. Ties go to the
// earlier region.
func HitTest(regions []Region, x, slop int) (Region, bool) {
	best := -1
	bestDist := slop + 1
	for i, r := range regions {
		dist := r.X - x
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best < 0 {
		return Region{}, false
	}
	return regions[best], true
}
