package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	got, err := parseDuration("12.480000\n")
	if err != nil || got != 12.48 {
		t.Errorf("parseDuration = %f, %v", got, err)
	}
	if _, err := parseDuration("N/A"); err == nil {
		t.Error("Expected error for N/A")
	}
}

func TestPickEncoder(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{" V....D h264_nvenc           NVIDIA NVENC H.264 encoder\n V....D libx264", "h264_nvenc"},
		{" V....D h264_videotoolbox    VideoToolbox H.264 Encoder\n V....D h264_nvenc", "h264_videotoolbox"},
		{" V....D libx264              libx264 H.264", "libx264"},
		{"", "libx264"},
	}
	for _, tt := range tests {
		if got := pickEncoder(tt.out); got != tt.want {
			t.Errorf("pickEncoder(%q) = %s, want %s", tt.out, got, tt.want)
		}
	}
}

func TestFindLatestAudio(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.mp3")
	newer := filepath.Join(dir, "b.WAV")
	for i, f := range []string{old, newer, filepath.Join(dir, "c.txt")} {
		os.WriteFile(f, []byte("x"), 0644)
		mt := time.Now().Add(time.Duration(i) * time.Minute)
		os.Chtimes(f, mt, mt)
	}

	got, err := FindLatestAudio(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("Expected %s, got %s", newer, got)
	}
}

func TestWorkers(t *testing.T) {
	if n := Workers(); n < 1 {
		t.Errorf("Workers() = %d", n)
	}
}

func TestImagePoolClearsBuffers(t *testing.T) {
	p := NewImagePool()
	img := p.Get(4, 2)
	if img.Rect.Dx() != 4 || img.Rect.Dy() != 2 {
		t.Fatalf("unexpected bounds %v", img.Rect)
	}
	img.Pix[0] = 255
	p.Put(img)

	again := p.Get(4, 2)
	if again.Pix[0] != 0 {
		t.Error("Expected pooled buffer to be cleared")
	}
}
