package anim

import (
	"github.com/ivlev/timeline/internal/scene"
)

// CameraState represents the camera position and zoom at a specific moment
type CameraState struct {
	X    float64 `yaml:"x"`    // Center point in scene space
	Y    float64 `yaml:"y"`    // Center point in scene space
	Zoom float64 `yaml:"zoom"` // 1.0 = no zoom
}

// Rest returns the unzoomed camera centred on a viewport.
func Rest(width, height float64) CameraState {
	return CameraState{X: width / 2, Y: height / 2, Zoom: 1}
}

// Camera calculates the camera state at scene time t. Each zoom event moves
// from the resting view to its target over Duration, holds for HoldDuration
// and, when AutoReset is set, returns over Duration. Without AutoReset the
// camera stays on the target until a later event starts. Later events take
// precedence over earlier ones.
func Camera(events []scene.ZoomEvent, rest CameraState, t float64) CameraState {
	state := rest
	for _, ev := range events {
		if t < ev.StartTime {
			continue
		}
		target := CameraState{X: ev.TargetX, Y: ev.TargetY, Zoom: ev.Zoom}
		ease := EasingByName(ev.Easing)
		local := t - ev.StartTime

		switch {
		case local < ev.Duration:
			state = interpolate(state, target, ease(Progress(local, ev.Duration)))
		case local < ev.Duration+ev.HoldDuration || !ev.AutoReset:
			state = target
		default:
			back := local - ev.Duration - ev.HoldDuration
			if back >= ev.Duration {
				state = rest
				continue
			}
			state = interpolate(target, rest, ease(Progress(back, ev.Duration)))
		}
	}
	return state
}

func interpolate(from, to CameraState, t float64) CameraState {
	return CameraState{
		X:    Lerp(from.X, to.X, t),
		Y:    Lerp(from.Y, to.Y, t),
		Zoom: Lerp(from.Zoom, to.Zoom, t),
	}
}
