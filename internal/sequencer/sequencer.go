// Package sequencer drives scenes through their entrance, hold and exit
// phases against renderable nodes.
//
// The engine is single-threaded and cooperative: every state transition
// happens inside a Clock callback or a call on the Sequencer, on the caller's
// goroutine. Nodes of one phase animate in parallel and the phase completes
// when the slowest of them does.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/timing"
)

const (
	// TransitionDuration is the fixed length of entrance and exit phases.
	TransitionDuration = 500 * time.Millisecond
	// PlainEntrance is the entrance length of scenes without a transition.
	PlainEntrance = 100 * time.Millisecond
	// EmptyWait keeps an empty playback one interval long.
	EmptyWait = time.Second

	SlideOffset    = 1000.0
	FadeStartScale = 0.9
)

var ErrSceneIndex = errors.New("scene index out of range")

// Phase is the sequencer state.
type Phase int

const (
	Idle Phase = iota
	Entering
	Holding
	Exiting
	Removed
	// Waiting is the placeholder interval of an empty scene list.
	Waiting
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Entering:
		return "entering"
	case Holding:
		return "holding"
	case Exiting:
		return "exiting"
	case Removed:
		return "removed"
	case Waiting:
		return "waiting"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PhaseEvent is delivered to observers on every transition.
type PhaseEvent struct {
	Scene   int
	SceneID string
	Phase   Phase
	At      time.Duration
}

type Sequencer struct {
	clock   *Clock
	factory Factory

	scenes  []scene.Scene // list read at every scene start
	current scene.Scene   // snapshot of the running scene
	index   int
	phase   Phase
	nodes   []Node

	// gen invalidates continuations of abandoned phases.
	gen  uint64
	wait *Timer
	err  error

	observers []func(PhaseEvent)
}

func New(clock *Clock, factory Factory) *Sequencer {
	return &Sequencer{
		clock:   clock,
		factory: factory,
		index:   -1,
	}
}

// OnPhase registers an observer of phase transitions.
func (s *Sequencer) OnPhase(fn func(PhaseEvent)) {
	s.observers = append(s.observers, fn)
}

// Start abandons any run in flight and starts playing scenes from index.
// An empty list plays a one second placeholder and finishes.
func (s *Sequencer) Start(scenes []scene.Scene, index int) error {
	s.abandon()
	s.scenes = scene.CloneScenes(scenes)
	s.err = nil

	if len(s.scenes) == 0 {
		s.index = -1
		if !s.setPhase(Waiting) {
			return nil
		}
		gen := s.gen
		s.wait = s.clock.AfterFunc(EmptyWait, func() {
			if gen != s.gen {
				return
			}
			s.wait = nil
			s.finish()
		})
		return nil
	}
	if index < 0 || index >= len(s.scenes) {
		s.index = -1
		s.phase = Idle
		return fmt.Errorf("%w: %d of %d", ErrSceneIndex, index, len(s.scenes))
	}
	s.enter(index)
	return nil
}

// Update replaces the scene list. The running scene keeps its snapshot;
// the new data is seen from the next scene start on.
func (s *Sequencer) Update(scenes []scene.Scene) {
	s.scenes = scene.CloneScenes(scenes)
}

// Seek abandons the in-flight phase and re-enters the target scene.
func (s *Sequencer) Seek(index int) error {
	if index < 0 || index >= len(s.scenes) {
		return fmt.Errorf("%w: %d of %d", ErrSceneIndex, index, len(s.scenes))
	}
	s.abandon()
	s.err = nil
	s.enter(index)
	return nil
}

// Stop abandons the run and returns to Idle.
func (s *Sequencer) Stop() {
	s.abandon()
	s.phase = Idle
}

// Current returns the index of the running scene, -1 if none.
func (s *Sequencer) Current() int {
	return s.index
}

// Scene returns the snapshot of the running scene.
func (s *Sequencer) Scene() (scene.Scene, bool) {
	if s.index < 0 {
		return scene.Scene{}, false
	}
	return s.current, true
}

func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Done reports whether the run has finished, successfully or not.
func (s *Sequencer) Done() bool {
	return s.phase == Done
}

// Err returns the failure that terminated the run, if any.
func (s *Sequencer) Err() error {
	return s.err
}

func (s *Sequencer) enter(i int) {
	s.index = i
	s.current = s.scenes[i].Clone()

	nodes := make([]Node, 0, len(s.current.Elements))
	for _, el := range s.current.Elements {
		n, err := s.factory.Create(el)
		if err != nil {
			s.nodes = nodes
			s.fail(fmt.Errorf("scene %d: element %s: %w", i, el.ID, err))
			return
		}
		if n == nil {
			Logger().Debug("element skipped", "scene", i, "element", el.ID, "type", el.Kind())
			continue
		}
		nodes = append(nodes, n)
	}
	s.nodes = nodes

	if !s.setPhase(Entering) {
		return
	}
	s.join(s.entrance(s.current.Transition.Effective()), s.hold)
}

func (s *Sequencer) entrance(kind scene.Transition) []Handle {
	handles := make([]Handle, 0, 4*len(s.nodes))
	for _, n := range s.nodes {
		switch kind {
		case scene.TransitionSlide:
			origin := n.Get(X)
			handles = append(handles,
				Set(n, X, origin+SlideOffset),
				Set(n, Opacity, 0),
				n.Animate(X, origin, TransitionDuration),
				n.Animate(Opacity, 1, TransitionDuration/2),
			)
		case scene.TransitionNone:
			handles = append(handles,
				Set(n, Opacity, 0),
				n.Animate(Opacity, 1, PlainEntrance),
			)
		default:
			handles = append(handles,
				Set(n, Scale, FadeStartScale),
				Set(n, Opacity, 0),
				n.Animate(Opacity, 1, TransitionDuration),
				n.Animate(Scale, 1, TransitionDuration),
			)
		}
	}
	return handles
}

func (s *Sequencer) hold() {
	d := timing.Seconds(s.current.Duration) - 2*TransitionDuration
	if d <= 0 {
		s.exit()
		return
	}
	if !s.setPhase(Holding) {
		return
	}
	gen := s.gen
	s.wait = s.clock.AfterFunc(d, func() {
		if gen != s.gen {
			return
		}
		s.wait = nil
		s.exit()
	})
}

func (s *Sequencer) exit() {
	if !s.setPhase(Exiting) {
		return
	}
	handles := make([]Handle, 0, len(s.nodes))
	for _, n := range s.nodes {
		handles = append(handles, n.Animate(Opacity, 0, TransitionDuration))
	}
	s.join(handles, s.remove)
}

func (s *Sequencer) remove() {
	s.detach()
	if !s.setPhase(Removed) {
		return
	}
	if next := s.index + 1; next < len(s.scenes) {
		s.enter(next)
		return
	}
	s.finish()
}

func (s *Sequencer) finish() {
	Logger().Debug("sequence finished", "at", s.clock.Now())
	s.setPhase(Done)
}

// join continues with next once all handles complete, unless the phase was
// abandoned in the meantime.
func (s *Sequencer) join(handles []Handle, next func()) {
	gen := s.gen
	Join(handles, func(err error) {
		if gen != s.gen {
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("scene %d %s: %w", s.index, s.phase, err))
			return
		}
		next()
	})
}

func (s *Sequencer) fail(err error) {
	s.abandon()
	s.err = err
	Logger().Error("sequence failed", "scene", s.index, "err", err)
	s.setPhase(Done)
}

func (s *Sequencer) abandon() {
	s.gen++
	if s.wait != nil {
		s.wait.Stop()
		s.wait = nil
	}
	s.detach()
}

func (s *Sequencer) detach() {
	for _, n := range s.nodes {
		n.Remove()
	}
	s.nodes = nil
}

// setPhase notifies the observers and reports whether the run is still the
// same one afterwards; an observer may have sought elsewhere.
func (s *Sequencer) setPhase(p Phase) bool {
	s.phase = p
	gen := s.gen
	ev := PhaseEvent{Scene: s.index, Phase: p, At: s.clock.Now()}
	if s.index >= 0 {
		ev.SceneID = s.current.ID
	}
	for _, fn := range s.observers {
		fn(ev)
	}
	return gen == s.gen
}
