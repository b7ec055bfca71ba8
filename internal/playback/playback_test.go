package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/timing"
)

type fakeHost struct {
	calls  []string
	vars   []Variables
	seeks  []int
	ranges []timing.FrameRange
}

func (h *fakeHost) SetVariables(v Variables) {
	h.calls = append(h.calls, "set")
	h.vars = append(h.vars, v)
}

func (h *fakeHost) TogglePlayback(playing bool) {
	if playing {
		h.calls = append(h.calls, "play")
	} else {
		h.calls = append(h.calls, "pause")
	}
}

func (h *fakeHost) RequestSeek(frame int) {
	h.calls = append(h.calls, "seek")
	h.seeks = append(h.seeks, frame)
}

func (h *fakeHost) RequestRender()                   { h.calls = append(h.calls, "render") }
func (h *fakeHost) FrameRanges() []timing.FrameRange { return h.ranges }

var threeScenes = []timing.FrameRange{
	{FirstFrame: 0, LastFrame: 30},
	{FirstFrame: 30, LastFrame: 90},
	{FirstFrame: 90, LastFrame: 150},
}

func TestPlayPushesFreshVariablesFirst(t *testing.T) {
	host := &fakeHost{}
	s := NewSynchronizer(host, 0)
	scenes := []scene.Scene{scene.NewScene("a"), scene.NewScene("b")}

	s.SetPlaying(true, scenes, 1)
	assert.Equal(t, []string{"set", "play"}, host.calls)
	assert.Equal(t, 1, host.vars[0].CurrentSceneIndex)
	assert.Len(t, host.vars[0].Scenes, 2)
	assert.True(t, s.Playing())

	s.SetPlaying(false, scenes, 1)
	assert.Equal(t, []string{"set", "play", "pause"}, host.calls)
	assert.False(t, s.Playing())
}

func TestSceneIndexChangedSeeksToSceneStart(t *testing.T) {
	host := &fakeHost{ranges: threeScenes}
	s := NewSynchronizer(host, 0)

	s.SceneIndexChanged(2)
	assert.Equal(t, []int{90}, host.seeks)

	s.SceneIndexChanged(1)
	assert.Equal(t, []int{90, 30}, host.seeks)
	assert.Equal(t, 1, s.LastIndex())
}

func TestSceneIndexChangedIsIdempotent(t *testing.T) {
	host := &fakeHost{ranges: threeScenes}
	s := NewSynchronizer(host, 0)

	s.SceneIndexChanged(0)
	assert.Empty(t, host.seeks)

	s.SceneIndexChanged(2)
	s.SceneIndexChanged(2)
	assert.Equal(t, []int{90}, host.seeks)
}

func TestSeekFallsBackToFrameZero(t *testing.T) {
	host := &fakeHost{ranges: threeScenes[:1]}
	s := NewSynchronizer(host, 0)

	s.SceneIndexChanged(2)
	assert.Equal(t, []int{0}, host.seeks)
}

func TestSceneAt(t *testing.T) {
	assert.Equal(t, 0, SceneAt(threeScenes, 0))
	assert.Equal(t, 1, SceneAt(threeScenes, 30))
	assert.Equal(t, 2, SceneAt(threeScenes, 149))
	assert.Equal(t, -1, SceneAt(threeScenes, 150))
}

func TestThrottleCoalescesWithinTick(t *testing.T) {
	var queue []func()
	redraws := 0
	th := NewThrottle(func(fn func()) { queue = append(queue, fn) }, func() { redraws++ })

	assert.True(t, th.Request())
	assert.False(t, th.Request())
	assert.False(t, th.Request())
	assert.True(t, th.Pending())

	for _, fn := range queue {
		fn()
	}
	assert.Equal(t, 1, redraws)
	assert.False(t, th.Pending())
}

func TestThrottleAcceptsRequestDuringRedraw(t *testing.T) {
	var queue []func()
	redraws := 0
	var th *Throttle
	th = NewThrottle(func(fn func()) { queue = append(queue, fn) }, func() {
		redraws++
		if redraws == 1 {
			assert.True(t, th.Request(), "request during redraw must not be lost")
		}
	})

	th.Request()
	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		fn()
	}
	assert.Equal(t, 2, redraws)
}
