package engine

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/raster"
	"github.com/ivlev/timeline/internal/system"
	"github.com/ivlev/timeline/internal/video"
)

// Rasterizer draws one frame. The returned buffer is released with
// system.PutImage once written.
type Rasterizer interface {
	Frame(f Frame) *image.RGBA
}

type rasterAdapter struct {
	r *raster.Renderer
}

func (a rasterAdapter) Frame(f Frame) *image.RGBA {
	return a.r.Frame(f.Nodes, f.Camera)
}

// VideoProject exports a rendered timeline to a video file.
type VideoProject struct {
	Config  config.Config
	Encoder video.VideoEncoder
	Raster  Rasterizer
}

func NewVideoProject(cfg config.Config, ve video.VideoEncoder) (*VideoProject, error) {
	r, err := raster.New(cfg.Frame())
	if err != nil {
		return nil, err
	}
	return &VideoProject{Config: cfg, Encoder: ve, Raster: rasterAdapter{r}}, nil
}

// Run rasterizes the frames on a bounded worker pool and streams them to the
// encoder in order, then lays the soundtrack over the result.
func (p *VideoProject) Run(ctx context.Context, tl *Timeline) error {
	startTime := time.Now()

	frameCount := len(tl.Frames)
	if frameCount == 0 {
		return fmt.Errorf("таймлайн не содержит кадров")
	}

	tempDir, err := os.MkdirTemp("", "timeline_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	fmt.Println("--- [PROJECT: TIMELINE ENGINE] ---")
	fmt.Printf("[*] Проект: %s | Кадров: %d | Длительность: %.2fs\n", tl.ProjectID, frameCount, tl.Duration)
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Потоки: %d\n", p.Config.Width, p.Config.Height, p.Config.FPS, p.Config.Workers)
	fmt.Println("-----------------------------")

	// Без аудио пишем сразу в итоговый файл
	videoPath := p.Config.OutputVideo
	if len(tl.Audio) > 0 {
		videoPath = filepath.Join(tempDir, "video.mp4")
	}

	renderStart := time.Now()
	if err := p.encodeFrames(ctx, tl, videoPath); err != nil {
		return err
	}
	renderTime := time.Since(renderStart)

	var mixTime time.Duration
	if len(tl.Audio) > 0 {
		fmt.Printf("[*] Сведение аудио (%d дорожек)...\n", len(tl.Audio))
		mixStart := time.Now()
		if err := p.Encoder.MixAudio(ctx, videoPath, tl.Audio, p.Config.OutputVideo, tl.Duration); err != nil {
			return fmt.Errorf("ошибка сведения аудио: %w", err)
		}
		mixTime = time.Since(mixStart)
	}

	if p.Config.ShowStats {
		p.report(tl, time.Since(startTime), renderTime, mixTime)
	}
	return nil
}

// releaseFrame returns a written or abandoned frame buffer to the pool.
var releaseFrame = system.PutImage

func (p *VideoProject) encodeFrames(ctx context.Context, tl *Timeline, videoPath string) error {
	stream, err := p.Encoder.Open(ctx, videoPath, p.Config)
	if err != nil {
		return err
	}

	workers := p.Config.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	// +1 for the writer
	g.SetLimit(workers + 1)

	// slots bounds the frames held in memory ahead of the writer
	slots := make(chan struct{}, 2*workers)
	results := make([]chan *image.RGBA, len(tl.Frames))
	for i := range results {
		results[i] = make(chan *image.RGBA, 1)
	}

	g.Go(func() error {
		for i := range results {
			select {
			case img := <-results[i]:
				err := stream.WriteFrame(img)
				releaseFrame(img)
				<-slots
				if err != nil {
					return fmt.Errorf("кадр %d: %w", i, err)
				}
				if (i+1)%max(p.Config.FPS*5, 1) == 0 || i+1 == len(results) {
					fmt.Printf("[>] Ready: %d/%d\n", i+1, len(results))
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

produce:
	for i := range tl.Frames {
		select {
		case slots <- struct{}{}:
		case <-gctx.Done():
			break produce
		}
		i := i
		g.Go(func() error {
			results[i] <- p.Raster.Frame(tl.Frames[i])
			return nil
		})
	}

	err = g.Wait()
	// frames rasterized after the writer gave up
	for _, ch := range results {
		select {
		case img := <-ch:
			releaseFrame(img)
		default:
		}
	}
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *VideoProject) report(tl *Timeline, total, render, mix time.Duration) {
	fps := float64(len(tl.Frames)) / total.Seconds()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Render+Encode: %.2fs\n"+
			"Audio Mix: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, total.Seconds(), render.Seconds(), mix.Seconds(), fps,
	)
	fmt.Print(report)

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		len(tl.Frames),
		total.Seconds(),
		render.Seconds(),
		fps,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
