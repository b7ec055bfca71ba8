package playback

import (
	"sync"

	"github.com/ivlev/timeline/internal/scene"
)

// Synchronizer translates the editor's scene index into host frames.
type Synchronizer struct {
	host Host

	mu        sync.Mutex
	lastIndex int
	playing   bool
}

// NewSynchronizer creates a synchronizer that has already observed
// initialIndex, so no seek is issued until the index moves.
func NewSynchronizer(host Host, initialIndex int) *Synchronizer {
	return &Synchronizer{host: host, lastIndex: initialIndex}
}

// SetPlaying starts or pauses the host. Before starting, the latest scenes
// and index are pushed so the host never plays a stale snapshot.
func (s *Synchronizer) SetPlaying(playing bool, scenes []scene.Scene, index int) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()

	if playing {
		s.host.SetVariables(Variables{Scenes: scenes, CurrentSceneIndex: index})
		s.host.TogglePlayback(true)
		return
	}
	s.host.TogglePlayback(false)
}

// Playing reports the last state requested through SetPlaying.
func (s *Synchronizer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SceneIndexChanged seeks the host to the first frame of index. Repeated
// calls with an unchanged index do nothing.
func (s *Synchronizer) SceneIndexChanged(index int) {
	s.mu.Lock()
	if index == s.lastIndex {
		s.mu.Unlock()
		return
	}
	s.lastIndex = index
	s.mu.Unlock()

	s.host.RequestSeek(TargetFrame(s.host.FrameRanges(), index))
}

// LastIndex returns the last scene index observed.
func (s *Synchronizer) LastIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIndex
}
