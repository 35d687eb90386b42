package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel   string
	ListenAddr string
	UserAgent  string

	Gemini GeminiConfig
	Replay ReplayConfig
}

type GeminiConfig struct {
	// Ключ опционален: без него triage недоступен, остальной пайплайн работает
	APIKey      string
	Model       string
	MaxFindings int
}

// ReplayConfig задаёт дефолты реплея, которые CLI-флаги могут переопределить
type ReplayConfig struct {
	Concurrency       int
	RequestsPerSecond float64
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func Load() (*Config, error) {
	// .env опционален, ошибки загрузки не фатальны
	_ = godotenv.Load()

	return &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		// Пустой адрес отключает live-прогресс; --listen переопределяет
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		UserAgent:  getEnvOrDefault("RECON_USER_AGENT", "surfacerecon/1.0"),
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnvOrDefault("GEMINI_MODEL", "googleai/gemini-2.5-flash"),
			MaxFindings: getIntEnv("TRIAGE_MAX_FINDINGS", 20),
		},
		Replay: ReplayConfig{
			Concurrency:       getIntEnv("RECON_CONCURRENCY", 5),
			RequestsPerSecond: getFloatEnv("RECON_RATE", 2.0),
		},
	}, nil
}
