package scene

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid project")

// MinSceneDuration is the shortest duration a scene may have unless the
// caller locks it explicitly.
const MinSceneDuration = 3.0

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

// Transition is the entry/exit treatment applied to all elements of a scene.
type Transition string

const (
	TransitionFade  Transition = "fade"
	TransitionSlide Transition = "slide"
	TransitionNone  Transition = "none"
)

// Project owns its scenes exclusively.
type Project struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"createdAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
	Scenes    []Scene   `yaml:"scenes"`
	Settings  *Settings `yaml:"settings,omitempty"`
}

type Settings struct {
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
	FPS        int    `yaml:"fps,omitempty"`
	Background string `yaml:"background,omitempty"`
}

type Background struct {
	Type  string `yaml:"type"` // color, image, gradient
	Value string `yaml:"value"`
}

// AudioClip is the legacy single-clip soundtrack of a scene.
type AudioClip struct {
	Src      string  `yaml:"src"`
	Duration float64 `yaml:"duration,omitempty"`
	Volume   float64 `yaml:"volume,omitempty"`
}

// Scene is a timed unit of composition.
type Scene struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	Duration       float64      `yaml:"duration"`
	DurationLocked bool         `yaml:"durationLocked,omitempty"`
	Elements       []Element    `yaml:"elements"`
	Transition     Transition   `yaml:"transition,omitempty"`
	Background     *Background  `yaml:"background,omitempty"`
	Audio          *AudioClip   `yaml:"audio,omitempty"`
	AudioTracks    []AudioTrack `yaml:"audioTracks,omitempty"`
	ZoomEvents     []ZoomEvent  `yaml:"zoomEvents,omitempty"`
}

// ZoomEvent is a camera keyframe consumed by the viewport, not the sequencer.
type ZoomEvent struct {
	ID           string  `yaml:"id"`
	StartTime    float64 `yaml:"startTime"`
	Duration     float64 `yaml:"duration"`
	TargetX      float64 `yaml:"targetX"`
	TargetY      float64 `yaml:"targetY"`
	Zoom         float64 `yaml:"zoom"`
	Easing       string  `yaml:"easing,omitempty"`
	HoldDuration float64 `yaml:"holdDuration"`
	AutoReset    bool    `yaml:"autoReset"`
}

type AudioTrack struct {
	ID        string    `yaml:"id"`
	Src       string    `yaml:"src"`
	Duration  float64   `yaml:"duration"`
	Category  string    `yaml:"category,omitempty"` // music, voice, sfx
	Waveform  []float64 `yaml:"waveform,omitempty,flow"`
	StartTime float64   `yaml:"startTime"`
	Volume    float64   `yaml:"volume"`
	Loop      bool      `yaml:"loop,omitempty"`
	FadeIn    float64   `yaml:"fadeIn,omitempty"`
	FadeOut   float64   `yaml:"fadeOut,omitempty"`
}

// NewProject creates an empty project stamped with the current time.
func NewProject(name string) *Project {
	now := time.Now()
	return &Project{
		ID:        NewID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewScene creates an empty scene with the minimum duration and a fade.
func NewScene(name string) Scene {
	return Scene{
		ID:         NewID(),
		Name:       name,
		Duration:   MinSceneDuration,
		Transition: TransitionFade,
	}
}

// Effective returns the transition to run; an empty value means fade.
func (t Transition) Effective() Transition {
	switch t {
	case TransitionSlide, TransitionNone:
		return t
	default:
		return TransitionFade
	}
}

// Clone returns a deep copy of the scene. The sequencer works on clones so
// edits made while a scene runs are only observed on its next entry.
func (s Scene) Clone() Scene {
	if s.Elements != nil {
		els := make([]Element, len(s.Elements))
		for i, e := range s.Elements {
			els[i] = e.Clone()
		}
		s.Elements = els
	}
	if s.Background != nil {
		b := *s.Background
		s.Background = &b
	}
	if s.Audio != nil {
		a := *s.Audio
		s.Audio = &a
	}
	if s.AudioTracks != nil {
		tracks := make([]AudioTrack, len(s.AudioTracks))
		for i, t := range s.AudioTracks {
			t.Waveform = append([]float64(nil), t.Waveform...)
			tracks[i] = t
		}
		s.AudioTracks = tracks
	}
	if s.ZoomEvents != nil {
		s.ZoomEvents = append([]ZoomEvent(nil), s.ZoomEvents...)
	}
	return s
}

// CloneScenes deep-copies a scene list.
func CloneScenes(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s.Clone()
	}
	return out
}

func (p *Project) Clone() *Project {
	c := *p
	c.Scenes = CloneScenes(p.Scenes)
	if p.Settings != nil {
		st := *p.Settings
		c.Settings = &st
	}
	return &c
}

// Touch updates the modification time.
func (p *Project) Touch() {
	p.UpdatedAt = time.Now()
}

// EnsureIDs assigns identifiers to every entity that lacks one.
func (p *Project) EnsureIDs() {
	if p.ID == "" {
		p.ID = NewID()
	}
	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.ID == "" {
			s.ID = NewID()
		}
		for j := range s.Elements {
			if s.Elements[j].ID == "" {
				s.Elements[j].ID = NewID()
			}
		}
		for j := range s.ZoomEvents {
			if s.ZoomEvents[j].ID == "" {
				s.ZoomEvents[j].ID = NewID()
			}
		}
		for j := range s.AudioTracks {
			if s.AudioTracks[j].ID == "" {
				s.AudioTracks[j].ID = NewID()
			}
		}
	}
}

// Validate checks the structural invariants of the project.
func (p *Project) Validate() error {
	for i := range p.Scenes {
		if err := p.Scenes[i].Validate(); err != nil {
			return fmt.Errorf("scene %d: %w", i, err)
		}
	}
	return nil
}

func (s *Scene) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration %.2f must be positive", ErrInvalid, s.Duration)
	}
	if s.Duration < MinSceneDuration && !s.DurationLocked {
		return fmt.Errorf("%w: duration %.2f below %.0fs and not locked", ErrInvalid, s.Duration, MinSceneDuration)
	}
	switch s.Transition {
	case "", TransitionFade, TransitionSlide, TransitionNone:
	default:
		return fmt.Errorf("%w: unknown transition %q", ErrInvalid, s.Transition)
	}

	seen := make(map[string]bool, len(s.Elements))
	for _, e := range s.Elements {
		if e.Props == nil {
			return fmt.Errorf("%w: element %s has no props", ErrInvalid, e.ID)
		}
		if e.ID != "" && seen[e.ID] {
			return fmt.Errorf("%w: duplicate element id %s", ErrInvalid, e.ID)
		}
		seen[e.ID] = true
	}
	for _, z := range s.ZoomEvents {
		if z.Zoom <= 0 || z.Duration < 0 || z.HoldDuration < 0 {
			return fmt.Errorf("%w: zoom event %s out of range", ErrInvalid, z.ID)
		}
	}
	for _, t := range s.AudioTracks {
		if t.Volume < 0 || t.Volume > 1 {
			return fmt.Errorf("%w: audio track %s volume %.2f outside [0,1]", ErrInvalid, t.ID, t.Volume)
		}
	}
	return nil
}
