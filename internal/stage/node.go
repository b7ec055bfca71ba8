package stage

import (
	"time"

	"github.com/ivlev/timeline/internal/anim"
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/sequencer"
)

const numProps = 4

type tween struct {
	from, to float64
	start    time.Duration
	dur      time.Duration
	timer    *sequencer.Timer
	done     *sequencer.Completion
}

// Node is a stage-backed sequencer.Node.
type Node struct {
	stage     *Stage
	elementID string
	kind      scene.Kind
	label     string
	fill      string

	width, height, rotation float64

	values  [numProps]float64
	tweens  [numProps]*tween
	removed bool
}

func (n *Node) Get(p sequencer.Property) float64 {
	if p < 0 || int(p) >= numProps {
		return 0
	}
	if tw := n.tweens[p]; tw != nil {
		elapsed := n.stage.clock.Now() - tw.start
		t := anim.Progress(elapsed.Seconds(), tw.dur.Seconds())
		return anim.Lerp(tw.from, tw.to, anim.Linear(t))
	}
	return n.values[p]
}

// Animate starts a linear tween. A running tween on the same property is
// replaced and its handle completes at once.
func (n *Node) Animate(p sequencer.Property, target float64, d time.Duration) sequencer.Handle {
	if n.removed {
		return sequencer.Resolved(ErrRemoved)
	}
	if p < 0 || int(p) >= numProps {
		return sequencer.Resolved(nil)
	}

	from := n.Get(p)
	if old := n.tweens[p]; old != nil {
		old.timer.Stop()
		n.tweens[p] = nil
		n.values[p] = from
		old.done.Complete(nil)
	}
	if d <= 0 {
		n.values[p] = target
		return sequencer.Resolved(nil)
	}

	tw := &tween{
		from:  from,
		to:    target,
		start: n.stage.clock.Now(),
		dur:   d,
		done:  &sequencer.Completion{},
	}
	tw.timer = n.stage.clock.AfterFunc(d, func() {
		n.values[p] = target
		n.tweens[p] = nil
		tw.done.Complete(nil)
	})
	n.tweens[p] = tw
	return tw.done
}

func (n *Node) Width() float64    { return n.width }
func (n *Node) Height() float64   { return n.height }
func (n *Node) Rotation() float64 { return n.rotation }

// Remove detaches the node; pending tweens fail with ErrRemoved.
func (n *Node) Remove() {
	if n.removed {
		return
	}
	n.removed = true
	for p, tw := range n.tweens {
		if tw == nil {
			continue
		}
		tw.timer.Stop()
		n.tweens[p] = nil
		tw.done.Complete(ErrRemoved)
	}
	n.stage.detach(n)
}

// State returns the node's render operation at the current time.
func (n *Node) State() NodeState {
	return NodeState{
		ElementID: n.elementID,
		Kind:      n.kind,
		X:         n.Get(sequencer.X),
		Y:         n.Get(sequencer.Y),
		Width:     n.width,
		Height:    n.height,
		Rotation:  n.rotation,
		Opacity:   n.Get(sequencer.Opacity),
		Scale:     n.Get(sequencer.Scale),
		Label:     n.label,
		Fill:      n.fill,
	}
}
