// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/fundsflow/cmd/httpserver"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/internal/userrepo"
	"github.com/go-petr/fundsflow/pkg/configpkg"
	"github.com/go-petr/fundsflow/pkg/dbpkg"
	"github.com/go-petr/fundsflow/pkg/passpkg"
	"github.com/go-petr/fundsflow/pkg/randompkg"
	"github.com/go-petr/fundsflow/pkg/redispkg"
	"github.com/rs/zerolog"
)

// LoadConfig loads the configuration of the named service from configsPath.
func LoadConfig(t *testing.T, configsPath, name string) configpkg.Config {
	t.Helper()

	config, err := configpkg.Load(configsPath, name)
	if err != nil {
		t.Fatalf(`configpkg.Load(%q, %q) returned error: %v`, configsPath, name, err)
	}

	return config
}

// SetupLedger returns ledger test server that cleans up database after each integration test.
func SetupLedger(t *testing.T, configsPath string) *httpserver.Server {
	t.Helper()

	config := LoadConfig(t, configsPath, "ledger")

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	rdb, err := redispkg.Setup(config.RedisAddress, config.RedisPassword, config.RedisDB)
	if err != nil {
		t.Fatalf("redis initialization failed. err: %v", err)
	}

	t.Cleanup(func() { _ = rdb.Close() })

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.NewLedger(db, rdb, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.NewLedger(db, rdb, logger, config) returned error: %v`, err)
	}

	return server
}

// SetupPayments returns payments test server calling the ledger at ledgerURL.
//
// Transactions settle without delay.
func SetupPayments(t *testing.T, configsPath, ledgerURL string) *httpserver.Server {
	t.Helper()

	config := LoadConfig(t, configsPath, "payments")
	config.LedgerURL = ledgerURL
	config.SettlementDelay = 0

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.NewPayments(db, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.NewPayments(db, logger, config) returned error: %v`, err)
	}

	return server
}

// SeedUser creates a user with its accounts holding initialBalance each.
func SeedUser(t *testing.T, db dbpkg.SQLInterface, initialBalance int64) (domain.User, string, []domain.Account) {
	t.Helper()

	password := randompkg.String(10)

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		t.Fatalf("passpkg.Hash(%q) returned error: %v", password, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, accounts, err := userrepo.NewTxRepoPGS(db).Create(ctx, domain.CreateUserParams{
		Email:          randompkg.Email(),
		HashedPassword: hashedPassword,
		InitialBalance: initialBalance,
	})
	if err != nil {
		t.Fatalf("userrepo.Create returned error: %v", err)
	}

	return user, password, accounts
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables 
	WHERE table_schema='public' AND table_name <> 'schema_migrations';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}
