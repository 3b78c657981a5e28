// Package main runs the payments service: transfers, payment history and
// recurring payments.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-petr/fundsflow/cmd/httpserver"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/pkg/configpkg"
	"github.com/go-petr/fundsflow/pkg/dbpkg"

	_ "github.com/lib/pq"
)

// shutdownGrace is added to the transfer deadline when draining requests.
const shutdownGrace = 5 * time.Second

func main() {
	config, err := configpkg.Load("./configs", "payments")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	server, err := httpserver.NewPayments(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logger.With().Str("component", "scheduler").Logger().WithContext(ctx)

	schedulerDone := make(chan struct{})

	go func() {
		defer close(schedulerDone)

		if err := server.Scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownTimeout := config.TransferDeadline() + shutdownGrace
	shutdownDone := make(chan struct{})

	go func() {
		defer close(shutdownDone)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("cannot shut down server")
		}
	}()

	logger.Info().Str("address", config.ServerAddress).Msg("PAYMENTS SERVER HAS STARTED")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("cannot start server")
	}

	<-shutdownDone

	select {
	case <-schedulerDone:
	case <-time.After(shutdownTimeout):
		logger.Error().Dur("timeout", shutdownTimeout).Msg("scheduler did not stop in time")
	}

	logger.Info().Msg("PAYMENTS SERVER HAS STOPPED")
}
