// Package timing derives element and scene durations from declarative
// timing fields and maps scenes onto frame ranges.
package timing

import (
	"math"
	"time"

	"github.com/ivlev/timeline/internal/scene"
)

const (
	DefaultEntrance = 0.5
	DefaultExit     = 0.5
	DefaultHold     = 3.0
	DefaultStart    = 0.0

	// SceneBuffer absorbs the overlap of the next scene's transition.
	SceneBuffer = 0.5
)

// Fields are the resolved timing values of one element, in seconds.
type Fields struct {
	Start    float64
	Entrance float64
	Hold     float64
	Exit     float64
}

// Resolve applies the defaults to the element's animation block.
// Negative values are clamped to zero.
func Resolve(el scene.Element) Fields {
	a := el.Timing()
	f := Fields{
		Start:    DefaultStart,
		Entrance: DefaultEntrance,
		Hold:     DefaultHold,
		Exit:     DefaultExit,
	}
	if a.StartTime != nil {
		f.Start = nonNegative(*a.StartTime)
	}
	if a.Entrance != nil && a.Entrance.Duration != nil {
		f.Entrance = nonNegative(*a.Entrance.Duration)
	}
	if a.Exit != nil && a.Exit.Duration != nil {
		f.Exit = nonNegative(*a.Exit.Duration)
	}
	switch {
	case a.HoldDuration != nil:
		f.Hold = nonNegative(*a.HoldDuration)
	case a.Hold != nil:
		f.Hold = nonNegative(*a.Hold)
	}
	return f
}

// ElementDuration returns the time at which the element leaves the screen.
// Media elements with a measured duration play for that long instead of
// their entrance and hold.
func ElementDuration(el scene.Element) float64 {
	f := Resolve(el)
	if m, ok := el.Props.(scene.Media); ok && m.Measured() > 0 {
		return f.Start + m.Measured() + f.Exit
	}
	return f.Start + f.Entrance + f.Hold + f.Exit
}

// SceneDuration returns the auto-computed duration of a scene holding els.
func SceneDuration(els []scene.Element) float64 {
	if len(els) == 0 {
		return scene.MinSceneDuration
	}
	longest := 0.0
	for _, el := range els {
		longest = math.Max(longest, ElementDuration(el))
	}
	return math.Max(scene.MinSceneDuration, longest+SceneBuffer)
}

// Recompute refreshes the scene's duration unless the caller locked it.
// It reports whether the duration changed.
func Recompute(s *scene.Scene) bool {
	if s.DurationLocked {
		return false
	}
	d := SceneDuration(s.Elements)
	if d == s.Duration {
		return false
	}
	s.Duration = d
	return true
}

// RecomputeAll applies Recompute to every scene.
func RecomputeAll(scenes []scene.Scene) {
	for i := range scenes {
		Recompute(&scenes[i])
	}
}

// Seconds converts a duration in seconds to a time.Duration.
func Seconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}

// FrameTime returns the presentation time of frame i, rounded the same way
// as Seconds so that frame-aligned durations end exactly on a frame.
func FrameTime(i, fps int) time.Duration {
	return Seconds(float64(i) / float64(fps))
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
