package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string // HTTP listen address, e.g. ":8080"
	WebAppDir  string // Path to the web application's UI files

	FFmpegPath string // ffmpeg binary used to decode compressed formats
	SampleRate int    // target sample rate for decoded buffers

	// Scheduler timing. Both are deliberately tunable: the tick cadence
	// bounds how quickly mute/solo/end-of-clip changes take effect, the
	// look-ahead is the jitter margin shared start instants are placed at.
	TickInterval time.Duration
	LookAhead    time.Duration

	WatchDir string // optional directory auto-imported into the timeline

	LogLevel      string
	LogPath       string
	LogMaxSize    int // megabytes
	LogMaxBackups int
	LogMaxAge     int // days
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvMillis reads an integer number of milliseconds.
func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load does not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		WebAppDir:  getEnv("WEBAPP_DIR", "web/ui"),

		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		SampleRate: getEnvInt("SAMPLE_RATE", 44100),

		TickInterval: getEnvMillis("TICK_MS", 50),
		LookAhead:    getEnvMillis("LOOKAHEAD_MS", 50),

		WatchDir: getEnv("WATCH_DIR", ""), // disabled unless set

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 28),
	}
}
