package scene

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the element type tag.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindAudio  Kind = "audio"
	KindShape  Kind = "shape"
	KindDevice Kind = "device3d"
	KindQRCode Kind = "qrcode"
)

// Effect is an entrance or exit treatment of a single element.
type Effect struct {
	Type     string   `yaml:"type,omitempty"`
	Duration *float64 `yaml:"duration,omitempty"`
}

// Animation holds the timing fields of an element. Absent fields fall back
// to the defaults of the timing package.
type Animation struct {
	Entrance     *Effect  `yaml:"entrance,omitempty"`
	Exit         *Effect  `yaml:"exit,omitempty"`
	HoldDuration *float64 `yaml:"holdDuration,omitempty"`
	Hold         *float64 `yaml:"hold,omitempty"` // legacy alias of holdDuration
	StartTime    *float64 `yaml:"startTime,omitempty"`
}

// Base is embedded in every element variant.
type Base struct {
	X         float64    `yaml:"x"`
	Y         float64    `yaml:"y"`
	Width     float64    `yaml:"width,omitempty"`
	Height    float64    `yaml:"height,omitempty"`
	Rotation  float64    `yaml:"rotation,omitempty"`
	Animation *Animation `yaml:"animation,omitempty"`
}

// Common returns the shared part of a variant.
func (b *Base) Common() *Base { return b }

func (b Base) clone() Base {
	if b.Animation == nil {
		return b
	}
	a := *b.Animation
	a.Entrance = cloneEffect(a.Entrance)
	a.Exit = cloneEffect(a.Exit)
	a.HoldDuration = cloneFloat(a.HoldDuration)
	a.Hold = cloneFloat(a.Hold)
	a.StartTime = cloneFloat(a.StartTime)
	b.Animation = &a
	return b
}

func cloneEffect(e *Effect) *Effect {
	if e == nil {
		return nil
	}
	c := *e
	c.Duration = cloneFloat(e.Duration)
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Props is the closed set of element variants.
type Props interface {
	Kind() Kind
	Common() *Base
}

// Media is implemented by variants backed by a time-based asset.
type Media interface {
	Props
	// Measured returns the asset's real duration in seconds, 0 if unknown.
	Measured() float64
}

type TextProps struct {
	Base     `yaml:",inline"`
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"fontSize,omitempty"`
	Color    string  `yaml:"color,omitempty"`
}

type ImageProps struct {
	Base `yaml:",inline"`
	Src  string `yaml:"src"`
}

type VideoProps struct {
	Base          `yaml:",inline"`
	Src           string  `yaml:"src"`
	MediaDuration float64 `yaml:"mediaDuration,omitempty"`
	Muted         bool    `yaml:"muted,omitempty"`
}

type AudioProps struct {
	Base          `yaml:",inline"`
	Src           string  `yaml:"src"`
	MediaDuration float64 `yaml:"mediaDuration,omitempty"`
	Volume        float64 `yaml:"volume,omitempty"`
}

type ShapeProps struct {
	Base  `yaml:",inline"`
	Shape string `yaml:"shape"` // rect, circle
	Fill  string `yaml:"fill,omitempty"`
}

type DeviceProps struct {
	Base      `yaml:",inline"`
	Device    string `yaml:"device"`
	ScreenSrc string `yaml:"screenSrc,omitempty"`
}

type QRCodeProps struct {
	Base    `yaml:",inline"`
	Content string `yaml:"content"`
	Color   string `yaml:"color,omitempty"`
}

// UnknownProps keeps elements whose type tag is not in the closed set.
// Node factories never map them.
type UnknownProps struct {
	Base `yaml:",inline"`
	Type Kind `yaml:"-"`
}

func (*TextProps) Kind() Kind      { return KindText }
func (*ImageProps) Kind() Kind     { return KindImage }
func (*VideoProps) Kind() Kind     { return KindVideo }
func (*AudioProps) Kind() Kind     { return KindAudio }
func (*ShapeProps) Kind() Kind     { return KindShape }
func (*DeviceProps) Kind() Kind    { return KindDevice }
func (*QRCodeProps) Kind() Kind    { return KindQRCode }
func (u *UnknownProps) Kind() Kind { return u.Type }

func (v *VideoProps) Measured() float64 { return v.MediaDuration }
func (a *AudioProps) Measured() float64 { return a.MediaDuration }

func newProps(k Kind) Props {
	switch k {
	case KindText:
		return &TextProps{}
	case KindImage:
		return &ImageProps{}
	case KindVideo:
		return &VideoProps{}
	case KindAudio:
		return &AudioProps{}
	case KindShape:
		return &ShapeProps{}
	case KindDevice:
		return &DeviceProps{}
	case KindQRCode:
		return &QRCodeProps{}
	default:
		return &UnknownProps{Type: k}
	}
}

func cloneProps(p Props) Props {
	switch v := p.(type) {
	case *TextProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *ImageProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *VideoProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *AudioProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *ShapeProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *DeviceProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *QRCodeProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	case *UnknownProps:
		c := *v
		c.Base = v.Base.clone()
		return &c
	default:
		return p
	}
}

// Element is a single visual or audio unit inside a scene.
type Element struct {
	ID    string
	Props Props
}

// NewElement creates an element with a fresh ID.
func NewElement(p Props) Element {
	return Element{ID: NewID(), Props: p}
}

func (e Element) Kind() Kind {
	if e.Props == nil {
		return ""
	}
	return e.Props.Kind()
}

// Layout returns the element's shared fields (zero value if it has no props).
func (e Element) Layout() Base {
	if e.Props == nil {
		return Base{}
	}
	return *e.Props.Common()
}

// Timing returns the element's animation block, zero value when absent.
func (e Element) Timing() Animation {
	if e.Props == nil || e.Props.Common().Animation == nil {
		return Animation{}
	}
	return *e.Props.Common().Animation
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	if e.Props != nil {
		e.Props = cloneProps(e.Props)
	}
	return e
}

type elementDoc struct {
	ID    string    `yaml:"id"`
	Type  Kind      `yaml:"type"`
	Props yaml.Node `yaml:"props"`
}

func (e *Element) UnmarshalYAML(value *yaml.Node) error {
	var doc elementDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	props := newProps(doc.Type)
	if doc.Props.Kind != 0 {
		if err := doc.Props.Decode(props); err != nil {
			return fmt.Errorf("element %s (%s): %w", doc.ID, doc.Type, err)
		}
	}
	e.ID = doc.ID
	e.Props = props
	return nil
}

func (e Element) MarshalYAML() (interface{}, error) {
	return struct {
		ID    string `yaml:"id"`
		Type  Kind   `yaml:"type"`
		Props Props  `yaml:"props,omitempty"`
	}{e.ID, e.Kind(), e.Props}, nil
}
