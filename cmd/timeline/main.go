package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/director"
	"github.com/ivlev/timeline/internal/engine"
	"github.com/ivlev/timeline/internal/playback"
	"github.com/ivlev/timeline/internal/scene"
	"github.com/ivlev/timeline/internal/sequencer"
	"github.com/ivlev/timeline/internal/system"
	"github.com/ivlev/timeline/internal/timing"
	"github.com/ivlev/timeline/internal/video"
)

var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/audio", "input/projects", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("[-] Ошибка чтения .env: %v", err)
	}
	if os.Getenv("TIMELINE_WORKERS") == "" {
		cfg.Workers = system.Workers()
	}
	cfg.BuildVersion = buildVersion

	inputPtr := flag.String("input", "", "Путь к YAML-проекту (по умолчанию: самый свежий файл в input/projects/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	timelinePtr := flag.String("timeline", "", "Сохранить покадровый таймлайн в YAML")
	noVideoPtr := flag.Bool("no-video", false, "Не кодировать видео (только таймлайн/превью)")
	previewPtr := flag.Bool("preview", false, "Проиграть проект в реальном времени и вывести смену сцен")
	savePtr := flag.Bool("save-project", false, "Сохранить обработанный проект (ID, длительности, зум) в output/")
	durationPtr := flag.Float64("duration", 0, "Общая длительность видео (если 0, берется из сцен или аудио)")
	widthPtr := flag.Int("width", cfg.Width, "Ширина")
	heightPtr := flag.Int("height", cfg.Height, "Высота")
	fpsPtr := flag.Int("fps", cfg.FPS, "FPS")
	workersPtr := flag.Int("workers", cfg.Workers, "Потоки растеризации")
	backgroundPtr := flag.String("background", cfg.Background, "Цвет фона (#rrggbb)")
	audioPtr := flag.String("audio", "", "Путь к фоновому аудио (по умолчанию: самый свежий файл в input/audio/)")
	audioSyncPtr := flag.Bool("audio-sync", cfg.AudioSync, "Подогнать длительность сцен под аудио")
	autoZoomPtr := flag.Bool("auto-zoom", false, "Сгенерировать зум-события для сцен без них")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram), 1:1")
	qualityPtr := flag.Int("quality", cfg.Quality, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	debugPtr := flag.Bool("debug", false, "Рисовать рамки элементов")
	statsPtr := flag.Bool("stats", cfg.ShowStats, "Показать отчет о производительности")
	logLevelPtr := flag.String("log-level", cfg.LogLevel, "Уровень логов движка: debug, info, warn, error")

	flag.Parse()

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevelPtr)); err != nil {
		log.Fatalf("[-] Неизвестный уровень логов: %s", *logLevelPtr)
	}
	sequencer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	inputPath := *inputPtr
	if inputPath == "" {
		latest, err := scene.FindLatestProject("input/projects")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите YAML-проект в input/projects/", err)
		}
		inputPath = latest
		fmt.Printf("[*] Выбран проект: %s\n", inputPath)
	}

	project, err := scene.ReadProject(inputPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения проекта: %v", err)
	}

	// Порядок: .env -> настройки проекта -> явные флаги
	cfg.ApplySettings(project.Settings)
	if setFlags["width"] {
		cfg.Width = *widthPtr
	}
	if setFlags["height"] {
		cfg.Height = *heightPtr
	}
	if setFlags["fps"] {
		cfg.FPS = *fpsPtr
	}
	if setFlags["background"] {
		cfg.Background = *backgroundPtr
	}
	cfg.ApplyPreset(*presetPtr)
	cfg.InputPath = inputPath
	cfg.Workers = *workersPtr
	cfg.AudioSync = *audioSyncPtr
	cfg.AutoZoom = *autoZoomPtr
	cfg.Quality = *qualityPtr
	cfg.Debug = *debugPtr
	cfg.ShowStats = *statsPtr
	cfg.TotalDuration = *durationPtr
	cfg.OutputTimeline = *timelinePtr

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Некорректная конфигурация: %v", err)
	}

	if n := engine.ProbeMedia(project, system.GetMediaDuration); n > 0 {
		fmt.Printf("[*] Длительность медиа определена для %d источников\n", n)
	}
	timing.RecomputeAll(project.Scenes)
	if err := project.Validate(); err != nil {
		log.Fatalf("[-] Некорректный проект: %v", err)
	}

	if cfg.AutoZoom {
		dir := director.NewDirector(cfg.Width, cfg.Height)
		for i := range project.Scenes {
			s := &project.Scenes[i]
			if len(s.ZoomEvents) > 0 {
				continue
			}
			s.ZoomEvents = dir.GenerateZoomEvents(*s)
			fmt.Printf("[*] Сцена %d: %d зум-событий\n", i+1, len(s.ZoomEvents))
		}
	}

	// Обработка аудио
	audioPath := *audioPtr
	if audioPath == "" {
		latest, err := system.FindLatestAudio("input/audio")
		if err == nil {
			audioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", audioPath)
		}
	}
	cfg.AudioPath = audioPath

	if audioPath != "" && cfg.AudioSync && cfg.TotalDuration <= 0 {
		audioDur, err := system.GetMediaDuration(audioPath)
		if err == nil {
			cfg.TotalDuration = audioDur
			fmt.Printf("[*] Длительность видео установлена по аудио: %.2fs\n", audioDur)
		} else {
			log.Printf("[!] Не удалось получить длительность аудио: %v", err)
		}
	}

	if cfg.TotalDuration > 0 && len(project.Scenes) > 0 {
		timing.FitScenes(project.Scenes, cfg.TotalDuration, cfg.FPS)
		fmt.Printf("[*] Сцены масштабированы под %.2fs\n", cfg.TotalDuration)
	}

	if *savePtr {
		project.Touch()
		path := scene.GenerateProjectPath("output")
		if err := scene.WriteProject(project, path); err != nil {
			log.Printf("[!] Не удалось сохранить проект: %v", err)
		} else {
			fmt.Printf("[*] Проект сохранен: %s\n", path)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *previewPtr {
		if err := preview(ctx, project, cfg.FPS); err != nil {
			log.Fatalf("[-] Ошибка превью: %v", err)
		}
		if ctx.Err() != nil {
			return
		}
	}

	renderStart := time.Now()
	tl, err := engine.Render(project, engine.RenderOptions{FPS: cfg.FPS, Width: cfg.Width, Height: cfg.Height})
	if err != nil {
		log.Fatalf("[-] Ошибка рендеринга таймлайна: %v", err)
	}
	if audioPath != "" {
		tl.Audio = append(tl.Audio, video.AudioInput{Src: audioPath, Volume: 1})
	}
	fmt.Printf("[*] Таймлайн: %d кадров, %.2fs (%.2fs)\n", len(tl.Frames), tl.Duration, time.Since(renderStart).Seconds())

	if cfg.OutputTimeline != "" {
		if err := engine.WriteTimeline(tl, cfg.OutputTimeline); err != nil {
			log.Fatalf("[-] Ошибка записи таймлайна: %v", err)
		}
		fmt.Printf("[*] Таймлайн сохранен: %s\n", cfg.OutputTimeline)
	}

	if *noVideoPtr {
		return
	}

	cfg.OutputVideo = *outputPtr
	if cfg.OutputVideo == "" {
		baseName := filepath.Base(inputPath)
		nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		cleanName := strings.ReplaceAll(nameOnly, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.OutputVideo = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
	}

	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder()
		if cfg.VideoEncoder != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
		}
	}
	if cfg.Quality == 0 {
		cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
	}

	vp, err := engine.NewVideoProject(cfg, &video.FFmpegEncoder{})
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации: %v", err)
	}
	if err := vp.Run(ctx, tl); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}

// preview plays the project in real time and prints every scene change.
func preview(ctx context.Context, project *scene.Project, fps int) error {
	fmt.Println("[*] Превью (Ctrl+C для выхода)...")

	last := -2
	player := engine.NewPlayer(fps, func(s engine.Snapshot) {
		if s.Scene != last {
			last = s.Scene
			if s.Scene >= 0 {
				fmt.Printf("[>] %6.2fs  сцена %d/%d (%s)\n", s.Time.Seconds(), s.Scene+1, len(project.Scenes), project.Scenes[s.Scene].Name)
			}
		}
	})
	synchronizer := playback.NewSynchronizer(player, 0)
	synchronizer.SetPlaying(true, project.Scenes, 0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !player.Playing() {
					cancel()
					return
				}
			}
		}
	}()

	err := player.Run(ctx)
	if perr := player.Err(); perr != nil {
		return perr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
