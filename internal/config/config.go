package config

import (
	"os"
	"strconv"
	"time"
)

// AppConfig carries the knobs that are not part of the database or
// JWT configuration: the public base URL used when building payment
// links, the shared secret the external scheduler presents, and the
// portal upload settings.
type AppConfig struct {
	BaseURL         string
	SchedulerSecret string
	UploadDir       string
	MaxUploadBytes  int64
	PortalTokenTTL  time.Duration
	NetTermsDays    int
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		BaseURL:         getEnv("APP_BASE_URL", "http://localhost:8080"),
		SchedulerSecret: getEnv("SCHEDULER_SECRET", ""),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		PortalTokenTTL:  getEnvAsDuration("PORTAL_TOKEN_TTL", 72*time.Hour),
		NetTermsDays:    getEnvAsInt("NET_TERMS_DAYS", 30),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
