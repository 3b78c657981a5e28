package domain

import (
	"errors"
	"time"
)

var (
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionFinalized indicates an attempt to change a terminal transaction.
	ErrTransactionFinalized = errors.New("transaction already finalized")
	// ErrSettlementFailed indicates that the transfer side effect failed.
	ErrSettlementFailed = errors.New("settlement failed")
)

// TransactionKind tags what the user asked for. SEND and WITHDRAW run the same workflow.
type TransactionKind string

// Supported transaction kinds.
const (
	TransactionKindSend     TransactionKind = "SEND"
	TransactionKindWithdraw TransactionKind = "WITHDRAW"
)

// Valid reports whether k is a supported transaction kind.
func (k TransactionKind) Valid() bool {
	return k == TransactionKindSend || k == TransactionKindWithdraw
}

// TransactionStatus is the workflow state of a transaction.
type TransactionStatus string

// Transaction states. SUCCESS and FAILED are terminal.
const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are permitted from s.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// Transaction is the journal record of one outbound payment.
type Transaction struct {
	ID                 int64             `json:"id"`
	UserID             int64             `json:"user_id"`
	Amount             int64             `json:"amount"` // must be positive
	Destination        string            `json:"destination"`
	AccountKind        AccountKind       `json:"account_kind"`
	Kind               TransactionKind   `json:"kind"`
	Status             TransactionStatus `json:"status"`
	FailureReason      string            `json:"failure_reason,omitempty"`
	RecurringPaymentID *int64            `json:"recurring_payment_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	CompletedAt        *time.Time        `json:"completed_at"`
}

// CreateTransactionParams is the input data for a transfer and its PENDING record.
type CreateTransactionParams struct {
	UserID             int64           `json:"user_id"`
	Amount             int64           `json:"amount"`
	Destination        string          `json:"destination"`
	AccountKind        AccountKind     `json:"account_kind"`
	Kind               TransactionKind `json:"kind"`
	RecurringPaymentID *int64          `json:"recurring_payment_id,omitempty"`
}

// CompleteTransactionParams is the input data to move a PENDING transaction to a terminal state.
type CompleteTransactionParams struct {
	ID            int64
	Status        TransactionStatus
	FailureReason string
}

// TransactionPage is one page of a user's payment history, newest first.
type TransactionPage struct {
	Page              int32         `json:"page"`
	Limit             int32         `json:"limit"`
	TotalTransactions int64         `json:"total_transactions"`
	TotalPages        int64         `json:"total_pages"`
	Transactions      []Transaction `json:"transactions"`
}

// Credential is an authenticated caller together with the bearer token that
// proves it, forwarded unchanged to the ledger service.
type Credential struct {
	UserID int64
	Token  string
}
