package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/SytherAsh/Vizuara-backend/internal/models"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Rendering
	TempDir          string
	RenderFPS        int
	RenderResolution string // "WIDTHxHEIGHT"
	CrossfadeSeconds float64
	MinSceneSeconds  float64
	HeadPad          float64
	TailPad          float64
	BgMusicVolume    float64
	KenBurnsEnabled  bool
	ZoomStart        float64
	ZoomEnd          float64
	PanMode          string
	MaxTotalSeconds  float64 // 0 = no global duration cap

	// Progress
	ProgressTTLMinutes   int
	ProgressSweepMinutes int

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "vizuara-videos"),

		TempDir:          getEnv("RENDER_TEMP_DIR", "/tmp/vizuara"),
		RenderFPS:        getEnvInt("RENDER_FPS", 30),
		RenderResolution: getEnv("RENDER_RESOLUTION", "1920x1080"),
		CrossfadeSeconds: getEnvFloat("CROSSFADE_SECONDS", 0.3),
		MinSceneSeconds:  getEnvFloat("MIN_SCENE_SECONDS", 2.0),
		HeadPad:          getEnvFloat("HEAD_PAD_SECONDS", 0.15),
		TailPad:          getEnvFloat("TAIL_PAD_SECONDS", 0.15),
		BgMusicVolume:    getEnvFloat("BG_MUSIC_VOLUME", 0.08),
		KenBurnsEnabled:  getEnvBool("KEN_BURNS_ENABLED", true),
		ZoomStart:        getEnvFloat("KB_ZOOM_START", 1.05),
		ZoomEnd:          getEnvFloat("KB_ZOOM_END", 1.15),
		PanMode:          getEnv("KB_PAN_MODE", "auto"),
		MaxTotalSeconds:  getEnvFloat("MAX_TOTAL_SECONDS", 0),

		ProgressTTLMinutes:   getEnvInt("PROGRESS_TTL_MINUTES", 60),
		ProgressSweepMinutes: getEnvInt("PROGRESS_SWEEP_MINUTES", 10),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if _, _, err := ParseResolution(cfg.RenderResolution); err != nil {
		return nil, fmt.Errorf("invalid RENDER_RESOLUTION: %w", err)
	}

	return cfg, nil
}

// RenderOptions builds the default option set requests start from; per-request
// overrides are layered on top at the API boundary.
func (c *Config) RenderOptions() models.RenderOptions {
	w, h, _ := ParseResolution(c.RenderResolution)
	return models.RenderOptions{
		FPS:               c.RenderFPS,
		Width:             w,
		Height:            h,
		CrossfadeSec:      c.CrossfadeSeconds,
		MinSceneSeconds:   c.MinSceneSeconds,
		HeadPad:           c.HeadPad,
		TailPad:           c.TailPad,
		BgMusicVolume:     c.BgMusicVolume,
		KenBurns:          c.KenBurnsEnabled,
		ZoomStart:         c.ZoomStart,
		ZoomEnd:           c.ZoomEnd,
		PanMode:           c.PanMode,
		MaxTotalSeconds:   c.MaxTotalSeconds,
		GenerateSubtitles: true,
	}
}

// ParseResolution splits a "WIDTHxHEIGHT" string into its dimensions.
func ParseResolution(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WIDTHxHEIGHT, got %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad width in %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad height in %q", s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("non-positive dimensions in %q", s)
	}
	return w, h, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
