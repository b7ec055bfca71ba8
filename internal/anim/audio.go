package anim

import (
	"math"

	"github.com/ivlev/timeline/internal/scene"
)

// Gain returns the playback volume of a track at scene time t, zero when
// the track is silent. Fades are linear and apply to every loop iteration.
func Gain(tr scene.AudioTrack, t float64) float64 {
	local := t - tr.StartTime
	if local < 0 || tr.Duration <= 0 {
		return 0
	}
	if local >= tr.Duration {
		if !tr.Loop {
			return 0
		}
		local = math.Mod(local, tr.Duration)
	}

	g := tr.Volume
	if tr.FadeIn > 0 && local < tr.FadeIn {
		g *= local / tr.FadeIn
	}
	if remaining := tr.Duration - local; tr.FadeOut > 0 && remaining < tr.FadeOut {
		g *= remaining / tr.FadeOut
	}
	return g
}
