package scan

import (
	"os"
	"strconv"
	"strings"
)

const (
	// Umbral de confianza por defecto para dar el parse por "bueno"
	// y disparar el chequeo de interacciones automático.
	DefaultConfidenceThreshold = 0.7
)

type Config struct {
	ConfidenceThreshold float64
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// ConfigFromEnv lee overrides desde env vars. Valores inválidos o fuera
// de rango caen al default.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if raw := strings.TrimSpace(os.Getenv("SCAN_CONFIDENCE_THRESHOLD")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 1 {
			cfg.ConfidenceThreshold = v
		}
	}

	return cfg
}
