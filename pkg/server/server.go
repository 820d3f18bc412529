package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/de-tools/access-atlas/pkg/services/review"
	"github.com/de-tools/access-atlas/pkg/store/duckdb/findings"

	handlers "github.com/de-tools/access-atlas/pkg/handlers/review"

	accessatlasmiddleware "github.com/de-tools/access-atlas/pkg/server/middleware"
	"github.com/de-tools/access-atlas/pkg/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Auditor review.Auditor
	History findings.Store
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	reviewHandler := handlers.NewHandler(deps.Auditor, deps.History, deps.Metrics)

	router := chi.NewRouter()

	router.Use(accessatlasmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/profiles", reviewHandler.ListProfiles)
		r.Post("/profiles/{profile}/review", reviewHandler.RunReview)
		r.Get("/reviews", reviewHandler.ListRuns)
		r.Get("/reviews/{runID}/findings", reviewHandler.GetRunFindings)
	})

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
		shutdownTimeout: config.ShutdownTimeout,
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		timeout := w.shutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
