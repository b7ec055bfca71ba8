// Package playback keeps a playback host's frame cursor aligned with the
// editor's current scene index and coalesces redraw requests.
package playback

import (
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/timing"
)

// Variables is the data a host plays from.
type Variables struct {
	Scenes            []scene.Scene
	CurrentSceneIndex int
}

// Host is the playback collaborator driven by the Synchronizer.
type Host interface {
	// SetVariables replaces the host's variable store. The frame-range
	// table is recomputed from the new scenes.
	SetVariables(v Variables)
	TogglePlayback(playing bool)
	RequestSeek(frame int)
	RequestRender()
	// FrameRanges returns the per-scene frame table, possibly shorter than
	// the scene list while the host has not caught up.
	FrameRanges() []timing.FrameRange
}
