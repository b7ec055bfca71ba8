package timing

import (
	"math"

	"github.com/ivlev/timeline/internal/scene"
)

// FrameRange is the [FirstFrame, LastFrame) interval a playback host
// assigns to one scene.
type FrameRange struct {
	FirstFrame int `yaml:"firstFrame"`
	LastFrame  int `yaml:"lastFrame"`
}

// Len returns the number of frames in the range.
func (r FrameRange) Len() int {
	return r.LastFrame - r.FirstFrame
}

// Contains reports whether frame falls inside the range.
func (r FrameRange) Contains(frame int) bool {
	return frame >= r.FirstFrame && frame < r.LastFrame
}

// FrameCount returns the number of whole frames covering sec seconds.
func FrameCount(sec float64, fps int) int {
	if fps <= 0 || sec <= 0 {
		return 0
	}
	return int(math.Round(sec * float64(fps)))
}

// FrameRanges lays the scenes out back to back.
func FrameRanges(scenes []scene.Scene, fps int) []FrameRange {
	ranges := make([]FrameRange, len(scenes))
	next := 0
	for i, s := range scenes {
		n := FrameCount(s.Duration, fps)
		ranges[i] = FrameRange{FirstFrame: next, LastFrame: next + n}
		next += n
	}
	return ranges
}

// AlignToFrame rounds sec to the nearest frame boundary.
func AlignToFrame(sec float64, fps int) float64 {
	if fps <= 0 {
		return sec
	}
	return math.Round(sec*float64(fps)) / float64(fps)
}

// FitToTotal scales durations so that they add up to total seconds (for
// example the length of a soundtrack) and aligns each one to a frame.
func FitToTotal(durations []float64, total float64, fps int) []float64 {
	out := make([]float64, len(durations))
	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	if sum <= 0 || total <= 0 {
		copy(out, durations)
		return out
	}

	scale := total / sum
	for i, d := range durations {
		// Выравниваем по кадрам для стабильной раскладки
		out[i] = AlignToFrame(d*scale, fps)
	}
	return out
}

// FitScenes rescales the scene durations to total and locks them, since a
// fitted duration may legitimately fall below the usual minimum.
func FitScenes(scenes []scene.Scene, total float64, fps int) {
	durations := make([]float64, len(scenes))
	for i, s := range scenes {
		durations[i] = s.Duration
	}
	for i, d := range FitToTotal(durations, total, fps) {
		scenes[i].Duration = d
		scenes[i].DurationLocked = true
	}
}
