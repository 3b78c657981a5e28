package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-petr/fundsflow/pkg/moneypkg"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientFunds indicates that the account cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// AccountKind is the kind of a user's account.
type AccountKind string

// Supported account kinds.
const (
	AccountKindCredit AccountKind = "credit"
	AccountKindDebit  AccountKind = "debit"
	AccountKindLoan   AccountKind = "loan"
)

// AccountKinds lists every kind provisioned for a new user.
var AccountKinds = []AccountKind{AccountKindCredit, AccountKindDebit, AccountKindLoan}

// Valid reports whether k is a supported account kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountKindCredit, AccountKindDebit, AccountKindLoan:
		return true
	}

	return false
}

// AllowsNegative reports whether the balance of this kind may go below zero.
func (k AccountKind) AllowsNegative() bool {
	return k == AccountKindLoan
}

// Account holds the balance of one user's account of a specific kind.
//
// Balance is held in minor units.
type Account struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Kind      AccountKind `json:"kind"`
	Balance   int64       `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CanCover reports whether the account may be debited by amount.
func (a Account) CanCover(amount int64) bool {
	return a.Kind.AllowsNegative() || a.Balance >= amount
}

// MarshalJSON adds the human readable balance to the account view.
func (a Account) MarshalJSON() ([]byte, error) {
	type account Account

	return json.Marshal(struct {
		account
		BalanceFormatted string `json:"balance_formatted"`
	}{
		account:          account(a),
		BalanceFormatted: moneypkg.Format(a.Balance),
	})
}

// ApplyDeltaParams is the input data to change an account balance.
type ApplyDeltaParams struct {
	UserID int64
	Kind   AccountKind
	Delta  int64 // can be negative or positive
	// RequestID makes the change exactly-once when not empty.
	RequestID string
}
