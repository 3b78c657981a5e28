// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/fundsflow/internal/accountdelivery"
	"github.com/go-petr/fundsflow/internal/accountrepo"
	"github.com/go-petr/fundsflow/internal/accountservice"
	"github.com/go-petr/fundsflow/internal/idempotencyrepo"
	"github.com/go-petr/fundsflow/internal/ledgerclient"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/internal/recurringdelivery"
	"github.com/go-petr/fundsflow/internal/recurringrepo"
	"github.com/go-petr/fundsflow/internal/recurringservice"
	"github.com/go-petr/fundsflow/internal/scheduler"
	"github.com/go-petr/fundsflow/internal/settlement"
	"github.com/go-petr/fundsflow/internal/transactionrepo"
	"github.com/go-petr/fundsflow/internal/transferdelivery"
	"github.com/go-petr/fundsflow/internal/transferservice"
	"github.com/go-petr/fundsflow/internal/userdelivery"
	"github.com/go-petr/fundsflow/internal/userrepo"
	"github.com/go-petr/fundsflow/internal/userservice"
	"github.com/go-petr/fundsflow/internal/validation"
	"github.com/go-petr/fundsflow/pkg/configpkg"
	"github.com/go-petr/fundsflow/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config

	// Scheduler is set on the payments server only.
	Scheduler *scheduler.Scheduler
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

func newEngine(logger zerolog.Logger) (*gin.Engine, error) {
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("cannot register validators: %w", err)
	}

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	return engine, nil
}

// NewLedger creates the ledger Server owning users and account balances.
//
// When rdb is nil, balance changes are applied without idempotency keys.
func NewLedger(conn *sql.DB, rdb *redis.Client, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	tokenMaker, err := tokenpkg.New(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userRepo := userrepo.NewRepoPGS(conn)
	accountRepo := accountrepo.NewRepoPGS(conn)

	var idempotencyStore accountservice.IdempotencyStore
	if rdb != nil {
		idempotencyStore = idempotencyrepo.NewRepoRedis(rdb, config.IdempotencyTTL)
	}

	userService := userservice.New(userRepo, config.InitialBalance)
	accountService := accountservice.New(accountRepo, idempotencyStore)

	userHandler := userdelivery.NewHandler(userService, tokenMaker, config.AccessTokenDuration)
	accountHandler := accountdelivery.NewHandler(accountService)

	engine, err := newEngine(logger)
	if err != nil {
		return nil, err
	}

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/accounts", accountHandler.List)
	authRoutes.GET("/balances/:user_id/:account_kind", accountHandler.GetBalance)
	authRoutes.POST("/balances/:user_id/:account_kind/deltas", accountHandler.ApplyDelta)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}

// NewPayments creates the payments Server owning transactions and recurring
// payments. The returned Server.Scheduler is not started.
func NewPayments(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if err := config.ValidatePayments(); err != nil {
		return nil, err
	}

	tokenMaker, err := tokenpkg.New(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	transactionRepo := transactionrepo.NewRepoPGS(conn)
	recurringRepo := recurringrepo.NewRepoPGS(conn)

	ledgerClient := ledgerclient.New(config.LedgerURL, config.LedgerTimeout)
	settler := settlement.NewDelayed(config.SettlementDelay)

	transferService := transferservice.New(transactionRepo, ledgerClient, settler)
	recurringService := recurringservice.New(recurringRepo)

	transferHandler := transferdelivery.NewHandler(transferService)
	recurringHandler := recurringdelivery.NewHandler(recurringService)

	engine, err := newEngine(logger)
	if err != nil {
		return nil, err
	}

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/transactions/send", transferHandler.Send)
	authRoutes.POST("/transactions/withdraw", transferHandler.Withdraw)
	authRoutes.GET("/transactions", transferHandler.List)

	authRoutes.POST("/recurring-payments", recurringHandler.Create)
	authRoutes.GET("/recurring-payments", recurringHandler.List)

	sch := scheduler.New(recurringRepo, transferService, transactionRepo, tokenMaker, scheduler.Config{
		Interval:          config.SchedulerInterval,
		Concurrency:       config.SchedulerConcurrency,
		TokenDuration:     config.SchedulerTokenDuration,
		StalePendingAfter: config.StalePendingAfter,
	})

	server := &Server{
		DB:        conn,
		Engine:    engine,
		Config:    config,
		Scheduler: sch,
	}

	return server, nil
}
