package director

import (
	"math"
	"sort"

	"github.com/ivlev/timeline/internal/scene"
)

// Director generates camera zoom events from the layout of a scene
type Director struct {
	ViewportWidth  int
	ViewportHeight int
	MinDwell       float64 // Minimum time per element (seconds)
	MaxDwell       float64 // Maximum time per element (seconds)
	ZoomDuration   float64 // Time to reach each target (seconds)
	Easing         string
}

// NewDirector creates a new Director with default settings
func NewDirector(viewportWidth, viewportHeight int) *Director {
	return &Director{
		ViewportWidth:  viewportWidth,
		ViewportHeight: viewportHeight,
		MinDwell:       1.0,
		MaxDwell:       3.0,
		ZoomDuration:   0.5,
		Easing:         "easeInOut",
	}
}

// region is a visual element's bounding box in scene space
type region struct {
	x, y, w, h float64
}

// GenerateZoomEvents creates zoom events that visit the visual elements of
// the scene in reading order. The last event resets to the full view.
func (d *Director) GenerateZoomEvents(s scene.Scene) []scene.ZoomEvent {
	regions := d.collectRegions(s.Elements)
	if len(regions) == 0 {
		return nil
	}

	// Sort in reading order (top-to-bottom, left-to-right)
	d.sortRegions(regions)

	dwellTime := d.calculateDwellTime(s.Duration, len(regions))

	events := make([]scene.ZoomEvent, 0, len(regions))
	currentTime := 1.0 // 1s intro on the full view
	for _, r := range regions {
		hold := dwellTime - d.ZoomDuration
		if hold < 0 {
			hold = 0
		}
		events = append(events, scene.ZoomEvent{
			ID:           scene.NewID(),
			StartTime:    currentTime,
			Duration:     d.ZoomDuration,
			TargetX:      r.x + r.w/2,
			TargetY:      r.y + r.h/2,
			Zoom:         d.calculateZoom(r),
			Easing:       d.Easing,
			HoldDuration: hold,
		})
		currentTime += dwellTime
	}
	events[len(events)-1].AutoReset = true

	return events
}

func (d *Director) collectRegions(els []scene.Element) []region {
	var out []region
	for _, el := range els {
		switch el.Props.(type) {
		case *scene.AudioProps, *scene.UnknownProps, nil:
			continue
		}
		b := el.Layout()
		if b.Width <= 0 || b.Height <= 0 {
			continue
		}
		out = append(out, region{b.X, b.Y, b.Width, b.Height})
	}
	return out
}

// sortRegions sorts regions in reading order (Western: top-to-bottom, left-to-right)
func (d *Director) sortRegions(regions []region) {
	sort.SliceStable(regions, func(i, j int) bool {
		// Threshold for "same row"
		const threshold = 20.0

		if math.Abs(regions[i].y-regions[j].y) > threshold {
			return regions[i].y < regions[j].y
		}

		// Same row, sort by X
		return regions[i].x < regions[j].x
	})
}

// calculateDwellTime determines how long to stay on each element
func (d *Director) calculateDwellTime(totalDuration float64, count int) float64 {
	// Reserve time for intro/outro (full view)
	introOutroDuration := 2.0
	availableDuration := totalDuration - introOutroDuration

	if availableDuration <= 0 {
		availableDuration = totalDuration
	}

	dwellTime := availableDuration / float64(count)

	// Clamp to min/max
	if dwellTime < d.MinDwell {
		dwellTime = d.MinDwell
	}
	if dwellTime > d.MaxDwell {
		dwellTime = d.MaxDwell
	}

	return dwellTime
}

// calculateZoom determines zoom level to fit a region in the viewport
func (d *Director) calculateZoom(r region) float64 {
	padding := 0.9 // Use 90% of viewport

	viewportW := float64(d.ViewportWidth) * padding
	viewportH := float64(d.ViewportHeight) * padding

	if r.w == 0 || r.h == 0 {
		return 1.0
	}

	// Use the smaller scale to ensure the region fits
	zoom := math.Min(viewportW/r.w, viewportH/r.h)

	// Clamp zoom to reasonable range
	if zoom < 1.0 {
		zoom = 1.0
	}
	if zoom > 3.0 {
		zoom = 3.0
	}

	return zoom
}
