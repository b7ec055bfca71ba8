package engine

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/playback"
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/sequencer"
	"github.com/ivlev/timeline/internal/system"
	"github.com/ivlev/timeline/internal/timing"
	"github.com/ivlev/timeline/internal/video"
)

func shape(x float64) scene.Element {
	return scene.NewElement(&scene.ShapeProps{
		Base:  scene.Base{X: x, Y: 10, Width: 100, Height: 50},
		Shape: "rect",
		Fill:  "#ff0000",
	})
}

func lockedScene(d float64, tr scene.Transition, els ...scene.Element) scene.Scene {
	s := scene.NewScene("s")
	s.Duration = d
	s.DurationLocked = true
	s.Transition = tr
	s.Elements = els
	return s
}

func project(scenes ...scene.Scene) *scene.Project {
	p := scene.NewProject("test")
	p.Scenes = scenes
	return p
}

func TestRenderSingleFadeScene(t *testing.T) {
	tl, err := Render(project(lockedScene(4, scene.TransitionFade, shape(0))), RenderOptions{FPS: 10, Width: 640, Height: 360})
	require.NoError(t, err)

	require.Len(t, tl.Frames, 40)
	assert.InDelta(t, 4.0, tl.Duration, 1e-9)
	assert.Equal(t, []SceneSpan{{ID: tl.Scenes[0].ID, Start: 0, End: 4}}, tl.Scenes)

	first := tl.Frames[0]
	assert.Equal(t, "entering", first.Phase)
	assert.Equal(t, 0, first.Scene)
	require.Len(t, first.Nodes, 1)
	assert.Equal(t, 0.0, first.Nodes[0].Opacity)
	assert.InDelta(t, 0.9, first.Nodes[0].Scale, 1e-9)

	assert.Equal(t, "holding", tl.Frames[5].Phase)
	assert.Equal(t, 1.0, tl.Frames[10].Nodes[0].Opacity)

	last := tl.Frames[38]
	assert.Equal(t, "exiting", last.Phase)
	assert.InDelta(t, 0.4, last.Nodes[0].Opacity, 1e-9)

	assert.Equal(t, 320.0, first.Camera.X)
	assert.Equal(t, 1.0, first.Camera.Zoom)
}

func TestRenderUsesObservedSceneStarts(t *testing.T) {
	tl, err := Render(project(
		lockedScene(4, scene.TransitionNone, shape(0)),
		lockedScene(0.5, scene.TransitionFade, shape(0)),
		lockedScene(3, scene.TransitionSlide, shape(0)),
	), RenderOptions{FPS: 10, Width: 640, Height: 360})
	require.NoError(t, err)

	require.Len(t, tl.Scenes, 3)
	assert.InDelta(t, 3.6, tl.Scenes[1].Start, 1e-9)
	assert.InDelta(t, 4.6, tl.Scenes[1].End, 1e-9, "short scene still runs both transitions")
	assert.InDelta(t, 7.6, tl.Duration, 1e-9)
	assert.Len(t, tl.Frames, 76)

	// nominal ranges for the playback host
	assert.Equal(t, 40, tl.Ranges[1].FirstFrame)
	assert.Equal(t, 45, tl.Ranges[1].LastFrame)
}

func TestRenderFrameAlignedDurations(t *testing.T) {
	const fps = 30

	t.Run("single scene", func(t *testing.T) {
		d := timing.AlignToFrame(50.0/30, fps)
		tl, err := Render(project(lockedScene(d, scene.TransitionFade, shape(0))), RenderOptions{FPS: fps})
		require.NoError(t, err)

		assert.Equal(t, []timing.FrameRange{{FirstFrame: 0, LastFrame: 50}}, tl.Ranges)
		assert.Len(t, tl.Frames, 50)
	})

	t.Run("fitted to soundtrack", func(t *testing.T) {
		scenes := make([]scene.Scene, 10)
		for i := range scenes {
			scenes[i] = lockedScene(4, scene.TransitionFade, shape(0))
		}
		timing.FitScenes(scenes, 50.0/3, fps)

		tl, err := Render(project(scenes...), RenderOptions{FPS: fps})
		require.NoError(t, err)

		assert.Equal(t, 500, tl.Ranges[9].LastFrame)
		assert.Len(t, tl.Frames, 500)
		for i, span := range tl.Scenes {
			assert.InDelta(t, float64(i)*5/3, span.Start, 1e-6, "scene %d", i)
		}
	})
}

func TestRenderEmptyProject(t *testing.T) {
	tl, err := Render(project(), RenderOptions{FPS: 10, Width: 100, Height: 100})
	require.NoError(t, err)

	assert.Len(t, tl.Frames, 10)
	assert.Equal(t, -1, tl.Frames[0].Scene)
	assert.Equal(t, "waiting", tl.Frames[0].Phase)
	assert.InDelta(t, 1.0, tl.Duration, 1e-9)
}

func TestRenderRejectsInvalidFPS(t *testing.T) {
	_, err := Render(project(), RenderOptions{})
	assert.Error(t, err)
}

func TestRenderCameraAndAudio(t *testing.T) {
	second := lockedScene(4, scene.TransitionFade, shape(0))
	second.ZoomEvents = []scene.ZoomEvent{{StartTime: 1, Duration: 1, TargetX: 100, TargetY: 100, Zoom: 2, Easing: "linear"}}
	second.AudioTracks = []scene.AudioTrack{{ID: "music", Src: "music.mp3", StartTime: 0.5, Duration: 10, Volume: 0.5}}
	second.Audio = &scene.AudioClip{Src: "voice.wav"}

	tl, err := Render(project(lockedScene(3, "", shape(0)), second), RenderOptions{FPS: 10, Width: 200, Height: 200})
	require.NoError(t, err)

	// scene 1 starts at 3s; its zoom is halfway at 3+1.5
	f := tl.Frames[45]
	assert.Equal(t, 1, f.Scene)
	assert.InDelta(t, 1.5, f.Camera.Zoom, 1e-9)
	assert.Equal(t, []AudioGain{{Track: "music", Gain: 0.5}}, f.Audio)
	assert.Empty(t, tl.Frames[30].Audio)

	require.Len(t, tl.Audio, 2)
	assert.Equal(t, video.AudioInput{Src: "voice.wav", Start: 3, Duration: 4, Volume: 1}, tl.Audio[0])
	assert.Equal(t, "music.mp3", tl.Audio[1].Src)
	assert.InDelta(t, 3.5, tl.Audio[1].Start, 1e-9)
	assert.InDelta(t, 3.5, tl.Audio[1].Duration, 1e-9, "trimmed to the scene")
}

func TestWriteTimeline(t *testing.T) {
	tl, err := Render(project(lockedScene(1, "", shape(0))), RenderOptions{FPS: 5, Width: 100, Height: 100})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "timeline.yaml")
	require.NoError(t, WriteTimeline(tl, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frames:")
	assert.Contains(t, string(data), "phase: entering")
}

func TestPlayerFollowsSynchronizer(t *testing.T) {
	var redraws []Snapshot
	p := NewPlayer(10, func(s Snapshot) { redraws = append(redraws, s) })
	syn := playback.NewSynchronizer(p, 0)
	scenes := []scene.Scene{lockedScene(4, "", shape(0)), lockedScene(4, "", shape(0))}

	syn.SetPlaying(true, scenes, 0)
	assert.Equal(t, []int{0, 40}, []int{p.FrameRanges()[0].FirstFrame, p.FrameRanges()[1].FirstFrame})
	assert.True(t, p.Playing())

	p.Tick(time.Second)
	assert.Equal(t, sequencer.Holding, p.Snapshot().Phase)
	require.Len(t, redraws, 1)

	syn.SceneIndexChanged(1)
	snap := p.Snapshot()
	assert.Equal(t, 1, snap.Scene)
	assert.Equal(t, sequencer.Entering, snap.Phase)

	p.Tick(10 * time.Second)
	assert.False(t, p.Playing(), "player stops at the end")
	assert.NoError(t, p.Err())
}

func TestPlayerSeekWhilePaused(t *testing.T) {
	draws := 0
	p := NewPlayer(10, func(Snapshot) { draws++ })
	p.SetVariables(playback.Variables{Scenes: []scene.Scene{lockedScene(4, "", shape(0)), lockedScene(4, "", shape(0))}})

	p.RequestSeek(45)
	p.RequestSeek(45)
	snap := p.Snapshot()
	assert.Equal(t, 1, snap.Scene)
	assert.Equal(t, sequencer.Holding, snap.Phase)
	assert.Equal(t, 0, draws, "redraw waits for the next tick")

	p.Tick(time.Second)
	assert.Equal(t, 1, draws, "requests coalesce")
	assert.Equal(t, snap.Time, p.Snapshot().Time, "paused player does not advance")
}

type fakeWriter struct {
	mu     sync.Mutex
	order  []byte
	failAt int
	closed bool
}

var errDiskFull = errors.New("disk full")

func (w *fakeWriter) WriteFrame(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.order) == w.failAt {
		return errDiskFull
	}
	w.order = append(w.order, img.(*image.RGBA).Pix[0])
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeEncoder struct {
	writer   *fakeWriter
	opened   string
	mixed    []video.AudioInput
	mixedOut string
}

func (e *fakeEncoder) Open(_ context.Context, path string, _ config.Config) (video.FrameWriter, error) {
	e.opened = path
	return e.writer, nil
}

func (e *fakeEncoder) MixAudio(_ context.Context, _ string, tracks []video.AudioInput, out string, _ float64) error {
	e.mixed, e.mixedOut = tracks, out
	return nil
}

type indexRaster struct{}

func (indexRaster) Frame(f Frame) *image.RGBA {
	img := system.GetImage(2, 2)
	img.Pix[0] = byte(f.Index)
	return img
}

func exportConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Workers = 3
	cfg.FPS = 10
	cfg.OutputVideo = filepath.Join(t.TempDir(), "out.mp4")
	return cfg
}

func testTimeline(n int) *Timeline {
	tl := &Timeline{ProjectID: "p", FPS: 10, Duration: float64(n) / 10}
	for i := 0; i < n; i++ {
		tl.Frames = append(tl.Frames, Frame{Index: i})
	}
	return tl
}

func TestExportWritesFramesInOrder(t *testing.T) {
	enc := &fakeEncoder{writer: &fakeWriter{}}
	cfg := exportConfig(t)
	vp := &VideoProject{Config: cfg, Encoder: enc, Raster: indexRaster{}}

	require.NoError(t, vp.Run(context.Background(), testTimeline(50)))

	require.Len(t, enc.writer.order, 50)
	for i, b := range enc.writer.order {
		assert.Equal(t, byte(i), b)
	}
	assert.True(t, enc.writer.closed)
	assert.Equal(t, cfg.OutputVideo, enc.opened, "no audio: straight to the output")
	assert.Nil(t, enc.mixed)
}

func TestExportMixesAudio(t *testing.T) {
	enc := &fakeEncoder{writer: &fakeWriter{}}
	cfg := exportConfig(t)
	vp := &VideoProject{Config: cfg, Encoder: enc, Raster: indexRaster{}}

	tl := testTimeline(5)
	tl.Audio = []video.AudioInput{{Src: "a.mp3", Volume: 1}}
	require.NoError(t, vp.Run(context.Background(), tl))

	assert.NotEqual(t, cfg.OutputVideo, enc.opened)
	assert.Equal(t, cfg.OutputVideo, enc.mixedOut)
	assert.Equal(t, tl.Audio, enc.mixed)
}

type countingRaster struct {
	indexRaster
	drawn atomic.Int32
}

func (r *countingRaster) Frame(f Frame) *image.RGBA {
	r.drawn.Add(1)
	return r.indexRaster.Frame(f)
}

func TestExportStopsOnWriteError(t *testing.T) {
	var released atomic.Int32
	releaseFrame = func(img *image.RGBA) {
		released.Add(1)
		system.PutImage(img)
	}
	t.Cleanup(func() { releaseFrame = system.PutImage })

	enc := &fakeEncoder{writer: &fakeWriter{failAt: 5}}
	raster := &countingRaster{}
	vp := &VideoProject{Config: exportConfig(t), Encoder: enc, Raster: raster}

	err := vp.Run(context.Background(), testTimeline(100))
	assert.ErrorIs(t, err, errDiskFull)
	assert.True(t, enc.writer.closed)
	assert.Len(t, enc.writer.order, 5)
	assert.Equal(t, raster.drawn.Load(), released.Load(), "every rasterized frame goes back to the pool")
}

func TestExportRejectsEmptyTimeline(t *testing.T) {
	vp := &VideoProject{Config: exportConfig(t), Encoder: &fakeEncoder{writer: &fakeWriter{}}, Raster: indexRaster{}}
	assert.Error(t, vp.Run(context.Background(), &Timeline{}))
}

func TestProbeMedia(t *testing.T) {
	s := lockedScene(4, "",
		scene.NewElement(&scene.VideoProps{Src: "clip.mp4"}),
		scene.NewElement(&scene.AudioProps{Src: "clip.mp4"}),
		scene.NewElement(&scene.VideoProps{Src: "known.mp4", MediaDuration: 2}),
		scene.NewElement(&scene.AudioProps{Src: "broken.wav"}),
	)
	s.AudioTracks = []scene.AudioTrack{{Src: "music.mp3"}}
	p := project(s)

	calls := map[string]int{}
	filled := ProbeMedia(p, func(path string) (float64, error) {
		calls[path]++
		if path == "broken.wav" {
			return 0, errors.New("no such file")
		}
		return 7.5, nil
	})

	assert.Equal(t, 3, filled)
	assert.Equal(t, 1, calls["clip.mp4"], "probed once")
	assert.Zero(t, calls["known.mp4"])
	assert.Equal(t, 7.5, p.Scenes[0].Elements[0].Props.(*scene.VideoProps).MediaDuration)
	assert.Equal(t, 7.5, p.Scenes[0].AudioTracks[0].Duration)
	assert.Zero(t, p.Scenes[0].Elements[3].Props.(*scene.AudioProps).MediaDuration)
}
