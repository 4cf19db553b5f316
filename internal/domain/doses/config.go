package doses

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultGraceWindow    = 2 * time.Hour
	DefaultSnoozeDelay    = 30 * time.Minute
	DefaultMaxSnoozes     = 1
	DefaultMaxSnoozeDelay = 2 * time.Hour
)

// Config agrupa los tunables del ciclo de vida de dosis.
// El código nunca asume los defaults: los tests los pasan como parámetros.
type Config struct {
	// GraceWindow: cuánto esperar después del horario programado antes de
	// que el barrido marque la dosis como missed.
	GraceWindow time.Duration

	// SnoozeDelay: cuánto se pospone cada snooze.
	SnoozeDelay time.Duration

	// MaxSnoozes: cantidad máxima de snoozes por dosis.
	MaxSnoozes int

	// MaxSnoozeDelay: tope total de posposición desde el horario original;
	// pasado este límite una dosis sin resolver se fuerza a missed.
	MaxSnoozeDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		GraceWindow:    DefaultGraceWindow,
		SnoozeDelay:    DefaultSnoozeDelay,
		MaxSnoozes:     DefaultMaxSnoozes,
		MaxSnoozeDelay: DefaultMaxSnoozeDelay,
	}
}

// ConfigFromEnv lee overrides por env:
// - DOSE_GRACE_WINDOW_MINUTES
// - DOSE_SNOOZE_DELAY_MINUTES
// - DOSE_MAX_SNOOZES
// - DOSE_MAX_SNOOZE_DELAY_MINUTES
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := envMinutes("DOSE_GRACE_WINDOW_MINUTES"); v > 0 {
		cfg.GraceWindow = v
	}
	if v := envMinutes("DOSE_SNOOZE_DELAY_MINUTES"); v > 0 {
		cfg.SnoozeDelay = v
	}
	if v := os.Getenv("DOSE_MAX_SNOOZES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxSnoozes = n
		}
	}
	if v := envMinutes("DOSE_MAX_SNOOZE_DELAY_MINUTES"); v > 0 {
		cfg.MaxSnoozeDelay = v
	}

	return cfg
}

func envMinutes(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}
