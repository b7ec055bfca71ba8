// Package raster draws the render operations of one frame into an RGBA
// buffer. It is the reference renderer behind video export: media assets
// are drawn as labelled placeholders.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/timeline/internal/anim"
	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/stage"
	"github.com/ivlev/timeline/internal/system"
)

var (
	placeholderFill = color.RGBA{0x44, 0x44, 0x44, 0xff}
	labelColor      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	debugColor      = color.RGBA{0xff, 0x00, 0x00, 0xff}
)

// Renderer is safe for concurrent use; sprites are cached per content.
type Renderer struct {
	params     config.FrameParams
	background color.RGBA

	mu      sync.Mutex
	sprites map[string]image.Image
}

func New(params config.FrameParams) (*Renderer, error) {
	bg, err := ParseColor(params.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	return &Renderer{
		params:     params,
		background: bg,
		sprites:    make(map[string]image.Image),
	}, nil
}

// Frame draws nodes in order through the camera. The buffer comes from the
// system pool; hand it back with system.PutImage.
func (r *Renderer) Frame(nodes []stage.NodeState, cam anim.CameraState) *image.RGBA {
	img := system.GetImage(r.params.Width, r.params.Height)
	draw.Draw(img, img.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	for _, n := range nodes {
		if n.Opacity <= 0 || n.Scale <= 0 {
			continue
		}
		rect := r.project(n, cam)
		if rect.Empty() || !rect.Overlaps(img.Bounds()) {
			continue
		}
		r.drawNode(img, rect, n)
		if r.params.Debug {
			outline(img, rect, debugColor)
		}
	}
	return img
}

// project maps a node box from scene space to the viewport. Scale applies
// around the node centre; the camera centre lands in the middle of the frame.
func (r *Renderer) project(n stage.NodeState, cam anim.CameraState) image.Rectangle {
	zoom := cam.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	cx := (n.X+n.Width/2-cam.X)*zoom + float64(r.params.Width)/2
	cy := (n.Y+n.Height/2-cam.Y)*zoom + float64(r.params.Height)/2
	w := n.Width * n.Scale * zoom
	h := n.Height * n.Scale * zoom

	return image.Rect(
		int(math.Round(cx-w/2)), int(math.Round(cy-h/2)),
		int(math.Round(cx+w/2)), int(math.Round(cy+h/2)),
	)
}

func (r *Renderer) drawNode(dst *image.RGBA, rect image.Rectangle, n stage.NodeState) {
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(clamp01(n.Opacity) * 255))})

	switch n.Kind {
	case scene.KindShape:
		fill := parseOr(n.Fill, labelColor)
		var src image.Image = image.NewUniform(fill)
		if n.Label == "circle" || n.Label == "ellipse" {
			src = &ellipse{fill: fill, r: rect}
		}
		draw.DrawMask(dst, rect, src, rect.Min, mask, image.Point{}, draw.Over)

	case scene.KindText:
		sprite := r.sprite("t|"+n.Fill+"|"+n.Label, func() image.Image {
			return textSprite(n.Label, parseOr(n.Fill, labelColor))
		})
		r.blit(dst, fit(rect, sprite.Bounds().Size()), sprite, mask, xdraw.ApproxBiLinear)

	case scene.KindQRCode:
		sprite := r.sprite("q|"+n.Fill+"|"+n.Label, func() image.Image {
			img, err := qrSprite(n.Label, parseOr(n.Fill, color.RGBA{A: 0xff}))
			if err != nil {
				return textSprite("QR?", labelColor)
			}
			return img
		})
		r.blit(dst, fit(rect, sprite.Bounds().Size()), sprite, mask, xdraw.NearestNeighbor)

	default:
		// image, video, device3d
		draw.DrawMask(dst, rect, image.NewUniform(placeholderFill), image.Point{}, mask, image.Point{}, draw.Over)
		if n.Label != "" {
			sprite := r.sprite("t||"+n.Label, func() image.Image {
				return textSprite(n.Label, labelColor)
			})
			r.blit(dst, fit(rect, sprite.Bounds().Size()), sprite, mask, xdraw.ApproxBiLinear)
		}
	}
}

func (r *Renderer) sprite(key string, build func() image.Image) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.sprites[key]; ok {
		return img
	}
	img := build()
	r.sprites[key] = img
	return img
}

// blit scales src into rect, then composites it with the opacity mask.
func (r *Renderer) blit(dst *image.RGBA, rect image.Rectangle, src image.Image, mask image.Image, scaler xdraw.Scaler) {
	if rect.Empty() {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	scaler.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	draw.DrawMask(dst, rect, scaled, image.Point{}, mask, image.Point{}, draw.Over)
}

// fit returns the largest rectangle with the aspect of size centred in rect.
func fit(rect image.Rectangle, size image.Point) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(float64(rect.Dx())/float64(size.X), float64(rect.Dy())/float64(size.Y))
	w := int(float64(size.X) * scale)
	h := int(float64(size.Y) * scale)
	origin := image.Pt(rect.Min.X+(rect.Dx()-w)/2, rect.Min.Y+(rect.Dy()-h)/2)
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
}

func textSprite(text string, col color.Color) image.Image {
	face := basicfont.Face7x13
	d := &font.Drawer{Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(text).Ceil()
	if w < 1 {
		w = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w+2, face.Height+2))
	d.Dst = img
	d.Dot = fixed.P(1, face.Ascent+1)
	d.DrawString(text)
	return img
}

func qrSprite(content string, col color.RGBA) (image.Image, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.ForegroundColor = col
	q.BackgroundColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
	// -1: one pixel per module, scaled later without smoothing
	return q.Image(-1), nil
}

func outline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.SetRGBA(x, r.Min.Y, c)
		dst.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.SetRGBA(r.Min.X, y, c)
		dst.SetRGBA(r.Max.X-1, y, c)
	}
}

// ellipse is a uniform fill clipped to the ellipse inscribed in r.
type ellipse struct {
	fill color.RGBA
	r    image.Rectangle
}

func (e *ellipse) ColorModel() color.Model { return color.RGBAModel }
func (e *ellipse) Bounds() image.Rectangle { return e.r }

func (e *ellipse) At(x, y int) color.Color {
	rx := float64(e.r.Dx()) / 2
	ry := float64(e.r.Dy()) / 2
	dx := (float64(x) + 0.5 - float64(e.r.Min.X) - rx) / rx
	dy := (float64(y) + 0.5 - float64(e.r.Min.Y) - ry) / ry
	if dx*dx+dy*dy > 1 {
		return color.RGBA{}
	}
	return e.fill
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}

func parseOr(s string, fallback color.RGBA) color.RGBA {
	if s == "" {
		return fallback
	}
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
