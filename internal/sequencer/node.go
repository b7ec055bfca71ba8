package sequencer

import (
	"time"

	"github.com/ivlev/timeline/internal/scene"
)

// Property is an animatable attribute of a Node.
type Property int

const (
	Opacity Property = iota
	Scale
	X
	Y
)

func (p Property) String() string {
	switch p {
	case Opacity:
		return "opacity"
	case Scale:
		return "scale"
	case X:
		return "x"
	case Y:
		return "y"
	default:
		return "unknown"
	}
}

// Node is a renderable handle for one element, owned by the rendering backend.
type Node interface {
	Get(p Property) float64
	// Animate tweens p to target over d. A non-positive d sets the value
	// synchronously and returns a completed handle.
	Animate(p Property, target float64, d time.Duration) Handle
	Width() float64
	Height() float64
	Rotation() float64
	// Remove detaches the node from the backend.
	Remove()
}

// Factory materializes nodes. It returns a nil Node for element types it
// does not map; such elements are skipped.
type Factory interface {
	Create(el scene.Element) (Node, error)
}

// Set assigns p immediately.
func Set(n Node, p Property, v float64) Handle {
	return n.Animate(p, v, 0)
}
