package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"med-adherence/internal/adapters/drugref/rxnorm"
	"med-adherence/internal/adapters/ocr/mlvision"
	"med-adherence/internal/domain/doses"
	"med-adherence/internal/platform/logger"
	"med-adherence/internal/ports/drugref"
	"med-adherence/internal/ports/ocr"
	"med-adherence/internal/router"
)

func main() {
	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	r, dosesSvc := router.NewRouter(router.Options{
		AuthVerifier: nil, // sin verifier para modo dev
		DrugResolver: drugResolverFromEnv(log),
		OCRExtractor: ocrExtractorFromEnv(log),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := doses.NewSweeper(dosesSvc, sweepIntervalFromEnv(), log)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// drugResolverFromEnv habilita el upstream RxNorm con DRUGREF_ENABLED=true.
// Sin upstream, la búsqueda de drogas usa solo el índice local.
func drugResolverFromEnv(log logger.Logger) drugref.Resolver {
	if os.Getenv("DRUGREF_ENABLED") != "true" {
		return nil
	}
	client, err := rxnorm.NewClient(rxnorm.Config{
		BaseURL: os.Getenv("DRUGREF_BASE_URL"),
	})
	if err != nil {
		log.Warn("rxnorm client disabled", map[string]any{"error": err.Error()})
		return nil
	}
	return rxnorm.NewResolver(client)
}

// ocrExtractorFromEnv habilita el motor de OCR si hay credenciales.
// Sin motor, /scan solo acepta texto ya extraído.
func ocrExtractorFromEnv(log logger.Logger) ocr.TextExtractor {
	baseURL := os.Getenv("OCR_BASE_URL")
	apiKey := os.Getenv("OCR_API_KEY")
	if baseURL == "" || apiKey == "" {
		return nil
	}
	client := mlvision.NewClient(mlvision.Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
	})
	log.Info("ocr extractor enabled", map[string]any{"base_url": baseURL})
	return mlvision.NewExtractor(client)
}

func sweepIntervalFromEnv() time.Duration {
	if raw := os.Getenv("DOSE_SWEEP_INTERVAL_MINUTES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return 5 * time.Minute
}
