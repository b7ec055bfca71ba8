// Package stage is an in-memory rendering backend: it materializes scene
// elements as nodes whose properties are tweened against a virtual clock,
// and snapshots them once per frame.
package stage

import (
	"errors"

	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/sequencer"
)

// ErrRemoved is reported by tweens of a node that was detached.
var ErrRemoved = errors.New("node removed from stage")

const (
	defaultWidth  = 200
	defaultHeight = 100
)

// NodeState is the render operation of one node in one frame.
type NodeState struct {
	ElementID string     `yaml:"element"`
	Kind      scene.Kind `yaml:"kind"`
	X         float64    `yaml:"x"`
	Y         float64    `yaml:"y"`
	Width     float64    `yaml:"width"`
	Height    float64    `yaml:"height"`
	Rotation  float64    `yaml:"rotation,omitempty"`
	Opacity   float64    `yaml:"opacity"`
	Scale     float64    `yaml:"scale"`
	Label     string     `yaml:"label,omitempty"`
	Fill      string     `yaml:"fill,omitempty"`
}

// Stage holds the attached nodes in creation order.
type Stage struct {
	clock *sequencer.Clock
	nodes []*Node
}

func New(clock *sequencer.Clock) *Stage {
	return &Stage{clock: clock}
}

// Create implements sequencer.Factory. Audio and unknown elements have no
// visual node and yield nil.
func (s *Stage) Create(el scene.Element) (sequencer.Node, error) {
	n := s.build(el)
	if n == nil {
		return nil, nil
	}
	s.nodes = append(s.nodes, n)
	return n, nil
}

func (s *Stage) build(el scene.Element) *Node {
	if el.Props == nil {
		return nil
	}
	base := el.Layout()
	n := &Node{
		stage:     s,
		elementID: el.ID,
		kind:      el.Kind(),
		width:     base.Width,
		height:    base.Height,
		rotation:  base.Rotation,
	}
	if n.width <= 0 {
		n.width = defaultWidth
	}
	if n.height <= 0 {
		n.height = defaultHeight
	}
	n.values[sequencer.X] = base.X
	n.values[sequencer.Y] = base.Y
	n.values[sequencer.Scale] = 1
	// Nodes start invisible; the entrance reveals them.
	n.values[sequencer.Opacity] = 0

	switch p := el.Props.(type) {
	case *scene.TextProps:
		n.label, n.fill = p.Text, p.Color
	case *scene.ImageProps:
		n.label = p.Src
	case *scene.VideoProps:
		n.label = p.Src
	case *scene.ShapeProps:
		n.label, n.fill = p.Shape, p.Fill
	case *scene.DeviceProps:
		n.label = p.Device
	case *scene.QRCodeProps:
		n.label, n.fill = p.Content, p.Color
	default:
		return nil
	}
	return n
}

// Snapshot returns the state of every attached node at the current time.
func (s *Stage) Snapshot() []NodeState {
	out := make([]NodeState, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.State())
	}
	return out
}

// Len returns the number of attached nodes.
func (s *Stage) Len() int {
	return len(s.nodes)
}

func (s *Stage) detach(n *Node) {
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return
		}
	}
}
