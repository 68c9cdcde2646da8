package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string

	AppointmentSlotMinutes int
	PanelsFile             string

	RateLimitPerMinute       int
	RateLimitBurst           int
	PortalRateLimitPerMinute int
	PortalRateLimitBurst     int

	LogLevel string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                     port,
		DatabaseURL:              os.Getenv("DB_DSN"),
		AppointmentSlotMinutes:   readInt("APPOINTMENT_SLOT_MINUTES", 30),
		PanelsFile:               os.Getenv("PANELS_FILE"),
		RateLimitPerMinute:       readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:           readInt("RATE_LIMIT_BURST", 30),
		PortalRateLimitPerMinute: readInt("PORTAL_RATE_LIMIT_PER_MIN", 30),
		PortalRateLimitBurst:     readInt("PORTAL_RATE_LIMIT_BURST", 10),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
	}
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
