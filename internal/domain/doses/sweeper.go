package doses

import (
	"context"
	"time"

	"med-adherence/internal/platform/logger"
)

// Sweeper invoca el barrido de missed en forma recurrente. No hay máquina
// de estados nueva acá: es solo un caller programado de SweepMissed, que ya
// es idempotente, así que correr varios sweepers a la vez es seguro.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      logger.Logger
}

func NewSweeper(svc *Service, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run bloquea hasta que ctx se cancele. Pensado para correr en una goroutine
// desde main.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.svc.SweepMissed(ctx, time.Time{})
			if err != nil {
				w.log.Error("missed sweep failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				w.log.Info("missed sweep", map[string]any{"transitioned": n})
			}
		}
	}
}
