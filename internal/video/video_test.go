package video

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/ivlev/timeline/internal/config"
)

func TestStreamArgs(t *testing.T) {
	cfg := config.Default()
	cfg.VideoEncoder = "h264_videotoolbox"
	cfg.Quality = 75

	args := strings.Join(streamArgs("out.mp4", cfg), " ")
	for _, want := range []string{"-video_size 1280x720", "-framerate 30", "-c:v h264_videotoolbox", "-b:v 7500k"} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected %q in %q", want, args)
		}
	}
	if !strings.HasSuffix(args, "out.mp4") {
		t.Errorf("Output path must come last: %q", args)
	}
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		encoder string
		quality int
		want    string
	}{
		{"h264_nvenc", 28, "-cq 28"},
		{"libx264", 18, "-crf 18 -preset medium"},
		{"", 0, "-crf 23 -preset medium"},
	}
	for _, tt := range tests {
		if got := strings.Join(qualityArgs(tt.encoder, tt.quality), " "); got != tt.want {
			t.Errorf("qualityArgs(%q, %d) = %q, want %q", tt.encoder, tt.quality, got, tt.want)
		}
	}
}

func TestMixArgs(t *testing.T) {
	tracks := []AudioInput{
		{Src: "music.mp3", Volume: 0.5, Loop: true, Duration: 10, FadeOut: 2},
		{Src: "voice.wav", Start: 1.5, FadeIn: 0.5},
	}
	args := mixArgs("silent.mp4", tracks, "final.mp4", 12)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-stream_loop -1 -i music.mp3 -i voice.wav") {
		t.Errorf("unexpected inputs: %q", joined)
	}

	var graph string
	for i, a := range args {
		if a == "-filter_complex" {
			graph = args[i+1]
		}
	}
	for _, want := range []string{
		"[1:a]atrim=0:10.000000,asetpts=PTS-STARTPTS,afade=t=out:st=8.000000:d=2.000000,volume=0.500000[a0]",
		"[2:a]afade=t=in:st=0:d=0.500000,volume=1.000000,adelay=1500|1500[a1]",
		"[a0][a1]amix=inputs=2",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("Expected %q in graph %q", want, graph)
		}
	}
	if !strings.HasSuffix(joined, "-t 12.000000 final.mp4") {
		t.Errorf("unexpected tail: %q", joined)
	}
}

func TestWriteRawRGBA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 8 {
		t.Fatalf("Expected 8 bytes, got %d", buf.Len())
	}
	if buf.Bytes()[0] != 255 || buf.Bytes()[3] != 255 {
		t.Errorf("unexpected first pixel %v", buf.Bytes()[:4])
	}
}
