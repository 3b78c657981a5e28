// Package main runs the ledger service: users, accounts and balance changes.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/go-petr/fundsflow/cmd/httpserver"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/pkg/configpkg"
	"github.com/go-petr/fundsflow/pkg/dbpkg"
	"github.com/go-petr/fundsflow/pkg/redispkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs", "ledger")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	rdb, err := redispkg.Setup(config.RedisAddress, config.RedisPassword, config.RedisDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to redis")
	}

	server, err := httpserver.NewLedger(db, rdb, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Str("address", config.ServerAddress).Msg("LEDGER SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
