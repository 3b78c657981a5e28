package httpserver_test

import (
	"testing"
	"time"

	"github.com/go-petr/fundsflow/cmd/httpserver"
	"github.com/go-petr/fundsflow/pkg/configpkg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentsRejectsShortStaleSweep(t *testing.T) {
	config := configpkg.Config{
		TokenType:         "paseto",
		TokenSymmetricKey: "12345678901234567890123456789012",
		LedgerTimeout:     5 * time.Second,
		SettlementDelay:   30 * time.Second,
		StalePendingAfter: 20 * time.Second,
	}

	server, err := httpserver.NewPayments(nil, zerolog.Nop(), config)
	require.ErrorIs(t, err, configpkg.ErrInvalidConfig)
	require.Nil(t, server)
}
