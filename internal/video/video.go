package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strings"

	"github.com/ivlev/timeline/internal/config"
)

// VideoEncoder turns a stream of rendered frames into a video file and lays
// the soundtrack over it.
type VideoEncoder interface {
	Open(ctx context.Context, videoPath string, cfg config.Config) (FrameWriter, error)
	MixAudio(ctx context.Context, videoPath string, tracks []AudioInput, finalPath string, duration float64) error
}

// FrameWriter accepts frames in presentation order.
type FrameWriter interface {
	WriteFrame(img image.Image) error
	Close() error
}

// AudioInput is one audio source placed on the output timeline.
type AudioInput struct {
	Src      string  `yaml:"src"`
	Start    float64 `yaml:"start"`              // seconds from the start of the video
	Duration float64 `yaml:"duration,omitempty"` // 0 plays the source to its end
	Volume   float64 `yaml:"volume"`
	FadeIn   float64 `yaml:"fadeIn,omitempty"`
	FadeOut  float64 `yaml:"fadeOut,omitempty"`
	Loop     bool    `yaml:"loop,omitempty"`
}

type FFmpegEncoder struct{}

// Stream is an ffmpeg process reading raw RGBA frames from stdin.
type Stream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    bytes.Buffer
	width  int
	height int
}

func (e *FFmpegEncoder) Open(ctx context.Context, videoPath string, cfg config.Config) (FrameWriter, error) {
	s := &Stream{width: cfg.Width, height: cfg.Height}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", streamArgs(videoPath, cfg)...)
	s.cmd.Stdout = &s.out
	s.cmd.Stderr = &s.out

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	s.stdin = stdin

	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return s, nil
}

func (s *Stream) WriteFrame(img image.Image) error {
	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("frame size %dx%d, stream expects %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

// Close finishes the stream and waits for ffmpeg to exit.
func (s *Stream) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w\nLog: %s", err, s.out.String())
	}
	return nil
}

func streamArgs(videoPath string, cfg config.Config) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", fmt.Sprintf("%d", cfg.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName(cfg.VideoEncoder),
	}
	args = append(args, qualityArgs(cfg.VideoEncoder, cfg.Quality)...)
	return append(args, videoPath)
}

func encoderName(name string) string {
	if name == "" {
		return "libx264"
	}
	return name
}

// Качество в зависимости от энкодера
func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v напрямую. Используем битрейт.
		bitrate := quality * 100 // кбит/с. 75 -> 7.5Мбит/с
		return []string{"-b:v", fmt.Sprintf("%dk", bitrate)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		if quality <= 0 {
			quality = 23
		}
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// MixAudio places every track at its start offset and muxes the mix into the
// video. The video stream is copied, not re-encoded.
func (e *FFmpegEncoder) MixAudio(ctx context.Context, videoPath string, tracks []AudioInput, finalPath string, duration float64) error {
	if len(tracks) == 0 {
		return fmt.Errorf("no audio tracks to mix")
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", mixArgs(videoPath, tracks, finalPath, duration)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio mix error: %v, output: %s", err, string(out))
	}
	return nil
}

func mixArgs(videoPath string, tracks []AudioInput, finalPath string, duration float64) []string {
	args := []string{"-y", "-i", videoPath}
	for _, t := range tracks {
		if t.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", t.Src)
	}

	var graph strings.Builder
	for i, t := range tracks {
		graph.WriteString(trackFilter(i+1, t))
		fmt.Fprintf(&graph, "[a%d];", i)
	}
	if len(tracks) == 1 {
		graph.WriteString("[a0]anull[aout]")
	} else {
		for i := range tracks {
			fmt.Fprintf(&graph, "[a%d]", i)
		}
		fmt.Fprintf(&graph, "amix=inputs=%d:duration=longest:dropout_transition=0:normalize=0[aout]", len(tracks))
	}

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
	)
	if duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%f", duration))
	}
	return append(args, finalPath)
}

func trackFilter(input int, t AudioInput) string {
	parts := []string{}
	if t.Duration > 0 {
		parts = append(parts, fmt.Sprintf("atrim=0:%f", t.Duration), "asetpts=PTS-STARTPTS")
	}
	if t.FadeIn > 0 {
		parts = append(parts, fmt.Sprintf("afade=t=in:st=0:d=%f", t.FadeIn))
	}
	if t.FadeOut > 0 && t.Duration > 0 {
		start := t.Duration - t.FadeOut
		if start < 0 {
			start = 0
		}
		parts = append(parts, fmt.Sprintf("afade=t=out:st=%f:d=%f", start, t.FadeOut))
	}
	volume := t.Volume
	if volume <= 0 {
		volume = 1
	}
	parts = append(parts, fmt.Sprintf("volume=%f", volume))
	if t.Start > 0 {
		ms := int(t.Start * 1000)
		parts = append(parts, fmt.Sprintf("adelay=%d|%d", ms, ms))
	}
	return fmt.Sprintf("[%d:a]%s", input, strings.Join(parts, ","))
}
