package playback

import "github.com/ivlev/timeline/internal/timing"

// TargetFrame returns the first frame of scene index: the summed lengths of
// every preceding range. It returns 0 when the table has no entry for index
// yet.
func TargetFrame(ranges []timing.FrameRange, index int) int {
	if index < 0 || index >= len(ranges) {
		return 0
	}
	frame := 0
	for _, r := range ranges[:index] {
		frame += r.LastFrame - r.FirstFrame
	}
	return frame
}

// SceneAt returns the index of the range containing frame, or -1.
func SceneAt(ranges []timing.FrameRange, frame int) int {
	for i, r := range ranges {
		if r.Contains(frame) {
			return i
		}
	}
	return -1
}
