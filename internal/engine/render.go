package engine

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/timeline/internal/anim"
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/sequencer"
	"github.com/ivlev/timeline/internal/stage"
	"github.com/ivlev/timeline/internal/timing"
	"github.com/ivlev/timeline/internal/video"
)

var ErrRunaway = errors.New("sequence did not finish in time")

type RenderOptions struct {
	FPS           int
	Width, Height int
}

// Frame is the complete render state at one frame.
type Frame struct {
	Index  int               `yaml:"frame"`
	Time   float64           `yaml:"time"`
	Scene  int               `yaml:"scene"`
	Phase  string            `yaml:"phase"`
	Camera anim.CameraState  `yaml:"camera"`
	Nodes  []stage.NodeState `yaml:"nodes,omitempty"`
	Audio  []AudioGain       `yaml:"audio,omitempty"`
}

type AudioGain struct {
	Track string  `yaml:"track"`
	Gain  float64 `yaml:"gain"`
}

// SceneSpan is the observed time a scene was on screen, which may differ
// from its nominal duration.
type SceneSpan struct {
	ID    string  `yaml:"id"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Timeline is the offline rendering of a project.
type Timeline struct {
	ProjectID string              `yaml:"project"`
	FPS       int                 `yaml:"fps"`
	Width     int                 `yaml:"width"`
	Height    int                 `yaml:"height"`
	Duration  float64             `yaml:"duration"`
	Ranges    []timing.FrameRange `yaml:"ranges"`
	Scenes    []SceneSpan         `yaml:"scenes"`
	Audio     []video.AudioInput  `yaml:"audio,omitempty"`
	Frames    []Frame             `yaml:"frames"`
}

// Render plays the project on a virtual clock, one frame at a time, and
// records every frame. A failed sequence is returned as an error.
func Render(p *scene.Project, opts RenderOptions) (*Timeline, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps %d", opts.FPS)
	}
	scenes := scene.CloneScenes(p.Scenes)

	tl := &Timeline{
		ProjectID: p.ID,
		FPS:       opts.FPS,
		Width:     opts.Width,
		Height:    opts.Height,
		Ranges:    timing.FrameRanges(scenes, opts.FPS),
		Scenes:    make([]SceneSpan, len(scenes)),
	}

	clock := sequencer.NewClock()
	clock.SetFrameRate(opts.FPS)
	st := stage.New(clock)
	seq := sequencer.New(clock, st)
	rest := anim.Rest(float64(opts.Width), float64(opts.Height))

	var sceneStart time.Duration
	seq.OnPhase(func(ev sequencer.PhaseEvent) {
		switch ev.Phase {
		case sequencer.Entering:
			sceneStart = ev.At
			tl.Scenes[ev.Scene] = SceneSpan{ID: ev.SceneID, Start: ev.At.Seconds()}
			if s, ok := seq.Scene(); ok {
				tl.Audio = append(tl.Audio, placeAudio(s, ev.At.Seconds())...)
			}
		case sequencer.Removed:
			tl.Scenes[ev.Scene].End = ev.At.Seconds()
		}
	})

	if err := seq.Start(scenes, 0); err != nil {
		return nil, err
	}

	limit := maxFrames(scenes, opts.FPS)
	for i := 0; ; i++ {
		at := timing.FrameTime(i, opts.FPS)
		clock.AdvanceTo(at)
		if seq.Done() {
			tl.Duration = at.Seconds()
			break
		}
		if i >= limit {
			return nil, fmt.Errorf("%w: %d frames", ErrRunaway, i)
		}

		f := Frame{
			Index:  i,
			Time:   at.Seconds(),
			Scene:  seq.Current(),
			Phase:  seq.Phase().String(),
			Camera: rest,
			Nodes:  st.Snapshot(),
		}
		if s, ok := seq.Scene(); ok {
			local := (at - sceneStart).Seconds()
			f.Camera = anim.Camera(s.ZoomEvents, rest, local)
			f.Audio = gains(s, local)
		}
		tl.Frames = append(tl.Frames, f)
	}

	if err := seq.Err(); err != nil {
		return nil, err
	}
	return tl, nil
}

// maxFrames bounds the render loop: every scene runs at least its two
// transitions.
func maxFrames(scenes []scene.Scene, fps int) int {
	total := sequencer.EmptyWait.Seconds()
	for _, s := range scenes {
		total += math.Max(s.Duration, 2*sequencer.TransitionDuration.Seconds())
	}
	return timing.FrameCount(total+1, fps)
}

// placeAudio lays the scene's sound sources onto the output timeline.
func placeAudio(s scene.Scene, start float64) []video.AudioInput {
	var out []video.AudioInput
	if s.Audio != nil && s.Audio.Src != "" {
		d := s.Audio.Duration
		if d <= 0 || d > s.Duration {
			d = s.Duration
		}
		out = append(out, video.AudioInput{
			Src:      s.Audio.Src,
			Start:    start,
			Duration: d,
			Volume:   volumeOr(s.Audio.Volume),
		})
	}
	for _, tr := range s.AudioTracks {
		if tr.Src == "" {
			continue
		}
		d := tr.Duration
		if tr.Loop || d <= 0 || tr.StartTime+d > s.Duration {
			d = math.Max(0, s.Duration-tr.StartTime)
		}
		out = append(out, video.AudioInput{
			Src:      tr.Src,
			Start:    start + tr.StartTime,
			Duration: d,
			Volume:   volumeOr(tr.Volume),
			FadeIn:   tr.FadeIn,
			FadeOut:  tr.FadeOut,
			Loop:     tr.Loop,
		})
	}
	for _, el := range s.Elements {
		a, ok := el.Props.(*scene.AudioProps)
		if !ok || a.Src == "" {
			continue
		}
		f := timing.Resolve(el)
		d := a.MediaDuration
		if d <= 0 || f.Start+d > s.Duration {
			d = math.Max(0, s.Duration-f.Start)
		}
		out = append(out, video.AudioInput{
			Src:      a.Src,
			Start:    start + f.Start,
			Duration: d,
			Volume:   volumeOr(a.Volume),
		})
	}
	return out
}

func volumeOr(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func gains(s scene.Scene, local float64) []AudioGain {
	var out []AudioGain
	for _, tr := range s.AudioTracks {
		if g := anim.Gain(tr, local); g > 0 {
			out = append(out, AudioGain{Track: tr.ID, Gain: g})
		}
	}
	return out
}

// WriteTimeline dumps the rendered timeline as YAML.
func WriteTimeline(tl *Timeline, path string) error {
	data, err := yaml.Marshal(tl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
