package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv reads an optional .env file and returns the defaults overridden
// by TIMELINE_* environment variables. A missing .env file is not an error.
func LoadEnv(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	c := Default()
	c.Width = getEnvAsInt("TIMELINE_WIDTH", c.Width)
	c.Height = getEnvAsInt("TIMELINE_HEIGHT", c.Height)
	c.FPS = getEnvAsInt("TIMELINE_FPS", c.FPS)
	c.Workers = getEnvAsInt("TIMELINE_WORKERS", c.Workers)
	c.Quality = getEnvAsInt("TIMELINE_QUALITY", c.Quality)
	c.Background = getEnv("TIMELINE_BACKGROUND", c.Background)
	c.VideoEncoder = getEnv("TIMELINE_ENCODER", c.VideoEncoder)
	c.LogLevel = getEnv("TIMELINE_LOG_LEVEL", c.LogLevel)
	c.AudioSync = getEnvAsBool("TIMELINE_AUDIO_SYNC", c.AudioSync)
	c.ShowStats = getEnvAsBool("TIMELINE_STATS", c.ShowStats)
	return c, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
