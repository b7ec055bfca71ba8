package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/timeline/internal/playback"
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/sequencer"
	"github.com/ivlev/timeline/internal/stage"
	"github.com/ivlev/timeline/internal/timing"
)

// Snapshot is what the player hands to its redraw callback.
type Snapshot struct {
	Time  time.Duration
	Scene int
	Phase sequencer.Phase
	Nodes []stage.NodeState
}

// Player is a real-time playback host: it owns a clock, a stage and a
// sequencer and advances them on Tick. It is safe for concurrent use.
type Player struct {
	mu      sync.Mutex
	clock   *sequencer.Clock
	stage   *stage.Stage
	seq     *sequencer.Sequencer
	fps     int
	vars    playback.Variables
	ranges  []timing.FrameRange
	playing bool
	started bool

	throttle *playback.Throttle
	redraw   func(Snapshot)

	qmu   sync.Mutex
	queue []func()

	log *slog.Logger
}

// NewPlayer creates a paused player. redraw may be nil.
func NewPlayer(fps int, redraw func(Snapshot)) *Player {
	if fps <= 0 {
		fps = 30
	}
	p := &Player{
		clock:  sequencer.NewClock(),
		fps:    fps,
		redraw: redraw,
		log:    sequencer.Logger().With("component", "player"),
	}
	p.stage = stage.New(p.clock)
	p.seq = sequencer.New(p.clock, p.stage)
	p.seq.OnPhase(func(ev sequencer.PhaseEvent) {
		p.log.Debug("phase", "scene", ev.Scene, "phase", ev.Phase, "at", ev.At)
	})
	p.throttle = playback.NewThrottle(p.schedule, p.draw)
	return p
}

func (p *Player) SetVariables(v playback.Variables) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.vars = playback.Variables{
		Scenes:            scene.CloneScenes(v.Scenes),
		CurrentSceneIndex: v.CurrentSceneIndex,
	}
	p.ranges = timing.FrameRanges(p.vars.Scenes, p.fps)
	if p.started {
		p.seq.Update(p.vars.Scenes)
	}
}

func (p *Player) TogglePlayback(playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if playing && (!p.started || p.seq.Done()) {
		p.start(p.vars.CurrentSceneIndex)
	}
	p.playing = playing
}

// start must be called with mu held.
func (p *Player) start(index int) {
	if index < 0 || index >= len(p.vars.Scenes) {
		index = 0
	}
	if err := p.seq.Start(p.vars.Scenes, index); err != nil {
		p.log.Error("start failed", "index", index, "err", err)
		return
	}
	p.started = true
}

// RequestSeek positions playback on frame: the containing scene is entered
// afresh and the clock runs forward to the frame's offset inside it.
func (p *Player) RequestSeek(frame int) {
	p.mu.Lock()
	index := playback.SceneAt(p.ranges, frame)
	if index < 0 {
		index = 0
	}
	if len(p.vars.Scenes) > 0 {
		if p.started {
			if err := p.seq.Seek(index); err != nil {
				p.log.Error("seek failed", "frame", frame, "err", err)
			}
		} else {
			p.start(index)
		}
		if index < len(p.ranges) && frame > p.ranges[index].FirstFrame {
			offset := frame - p.ranges[index].FirstFrame
			p.clock.Advance(timing.FrameTime(offset, p.fps))
		}
	}
	p.mu.Unlock()

	p.RequestRender()
}

func (p *Player) RequestRender() {
	p.throttle.Request()
}

func (p *Player) FrameRanges() []timing.FrameRange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]timing.FrameRange(nil), p.ranges...)
}

// Playing reports whether Tick advances time.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Err returns the failure that stopped the last run.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq.Err()
}

// Snapshot returns the current frame.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Player) snapshot() Snapshot {
	return Snapshot{
		Time:  p.clock.Now(),
		Scene: p.seq.Current(),
		Phase: p.seq.Phase(),
		Nodes: p.stage.Snapshot(),
	}
}

// Tick is one display refresh: time moves by dt while playing, then the
// redraws scheduled since the last tick run.
func (p *Player) Tick(dt time.Duration) {
	p.mu.Lock()
	if p.playing {
		p.clock.Advance(dt)
		if p.seq.Done() {
			p.playing = false
			if err := p.seq.Err(); err != nil {
				p.log.Error("playback stopped", "err", err)
			}
		}
	}
	playing := p.playing
	p.mu.Unlock()

	if playing {
		p.RequestRender()
	}

	p.qmu.Lock()
	queued := p.queue
	p.queue = nil
	p.qmu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

// Run ticks the player in real time at its frame rate until ctx is done.
func (p *Player) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(p.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(interval)
		}
	}
}

func (p *Player) schedule(fn func()) {
	p.qmu.Lock()
	p.queue = append(p.queue, fn)
	p.qmu.Unlock()
}

func (p *Player) draw() {
	if p.redraw == nil {
		return
	}
	p.redraw(p.Snapshot())
}
