package director

import (
	"testing"

	"github.com/ivlev/timeline/internal/scene"
)

func shape(x, y, w, h float64) scene.Element {
	return scene.NewElement(&scene.ShapeProps{Base: scene.Base{X: x, Y: y, Width: w, Height: h}})
}

func TestDirector(t *testing.T) {
	director := NewDirector(1280, 720)

	s := scene.NewScene("test")
	s.Duration = 10.0
	s.Elements = []scene.Element{
		shape(50, 150, 250, 100),
		shape(50, 50, 150, 50),
		shape(700, 55, 400, 300),
		scene.NewElement(&scene.AudioProps{Src: "voice.mp3"}),
	}

	events := director.GenerateZoomEvents(s)
	if len(events) != 3 {
		t.Fatalf("Expected 3 zoom events, got %d", len(events))
	}

	// Reading order: the two top-row shapes first, left to right
	wantX := []float64{125, 900, 175}
	for i, ev := range events {
		if ev.TargetX != wantX[i] {
			t.Errorf("Event %d: expected target x %.0f, got %.0f", i, wantX[i], ev.TargetX)
		}
		if ev.Zoom < 1.0 || ev.Zoom > 3.0 {
			t.Errorf("Event %d: zoom %.2f out of range", i, ev.Zoom)
		}
		if ev.ID == "" {
			t.Errorf("Event %d has no id", i)
		}
		t.Logf("Event %d: start=%.1fs, x=%.0f, zoom=%.2f", i, ev.StartTime, ev.TargetX, ev.Zoom)
	}

	if events[0].StartTime != 1.0 {
		t.Errorf("Expected first event at 1s, got %.1f", events[0].StartTime)
	}
	// (10 - 2) / 3 = 2.67s per element
	if d := events[1].StartTime - events[0].StartTime; d < 2.6 || d > 2.7 {
		t.Errorf("Unexpected dwell time %.2f", d)
	}
	if !events[2].AutoReset || events[0].AutoReset {
		t.Error("Only the last event should reset the camera")
	}
}

func TestDirectorDwellClamp(t *testing.T) {
	d := NewDirector(1280, 720)
	if got := d.calculateDwellTime(100, 2); got != d.MaxDwell {
		t.Errorf("Expected max dwell, got %.2f", got)
	}
	if got := d.calculateDwellTime(3, 10); got != d.MinDwell {
		t.Errorf("Expected min dwell, got %.2f", got)
	}
}

func TestDirectorNoRegions(t *testing.T) {
	d := NewDirector(1280, 720)
	s := scene.NewScene("empty")
	s.Elements = []scene.Element{scene.NewElement(&scene.TextProps{Text: "no size"})}
	if events := d.GenerateZoomEvents(s); events != nil {
		t.Errorf("Expected no events, got %d", len(events))
	}
}
