package transactionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
)

// RepoMemory keeps the journal in process memory.
type RepoMemory struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]domain.Transaction
	now    func() time.Time
}

// NewRepoMemory returns an empty RepoMemory.
func NewRepoMemory() *RepoMemory {
	return &RepoMemory{
		items: make(map[int64]domain.Transaction),
		now:   time.Now,
	}
}

// Create records the PENDING transaction and then returns it.
func (r *RepoMemory) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if arg.Amount <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if !arg.AccountKind.Valid() {
		return domain.Transaction{}, domain.ErrInvalidAccountKind
	}

	if !arg.Kind.Valid() {
		return domain.Transaction{}, domain.ErrInvalidTransactionKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	t := domain.Transaction{
		ID:                 r.nextID,
		UserID:             arg.UserID,
		Amount:             arg.Amount,
		Destination:        arg.Destination,
		AccountKind:        arg.AccountKind,
		Kind:               arg.Kind,
		Status:             domain.TransactionStatusPending,
		RecurringPaymentID: arg.RecurringPaymentID,
		CreatedAt:          r.now().UTC(),
	}
	r.items[t.ID] = t

	return t, nil
}

// Complete moves the PENDING transaction to a terminal state.
func (r *RepoMemory) Complete(ctx context.Context, arg domain.CompleteTransactionParams) (domain.Transaction, error) {
	if !arg.Status.IsTerminal() {
		return domain.Transaction{}, domain.ErrValidation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[arg.ID]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	if t.Status.IsTerminal() {
		return domain.Transaction{}, domain.ErrTransactionFinalized
	}

	completedAt := r.now().UTC()
	t.Status = arg.Status
	t.FailureReason = arg.FailureReason
	t.CompletedAt = &completedAt
	r.items[t.ID] = t

	return t, nil
}

// Get returns the transaction with the given id.
func (r *RepoMemory) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return t, nil
}

// List returns the specified page of the user's transactions, newest first.
func (r *RepoMemory) List(ctx context.Context, userID int64, limit, offset int32) ([]domain.Transaction, error) {
	items := r.byUser(userID)

	if offset < 0 || int(offset) >= len(items) {
		return []domain.Transaction{}, nil
	}

	items = items[offset:]
	if int(limit) < len(items) {
		items = items[:limit]
	}

	return items, nil
}

// Count returns the number of the user's transactions.
func (r *RepoMemory) Count(ctx context.Context, userID int64) (int64, error) {
	return int64(len(r.byUser(userID))), nil
}

// FailStale marks PENDING transactions created before olderThan as FAILED.
func (r *RepoMemory) FailStale(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64

	completedAt := r.now().UTC()

	for id, t := range r.items {
		if t.Status != domain.TransactionStatusPending || !t.CreatedAt.Before(olderThan) {
			continue
		}

		t.Status = domain.TransactionStatusFailed
		t.FailureReason = reason
		t.CompletedAt = &completedAt
		r.items[id] = t
		n++
	}

	return n, nil
}

func (r *RepoMemory) byUser(userID int64) []domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := []domain.Transaction{}

	for _, t := range r.items {
		if t.UserID == userID {
			items = append(items, t)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}

		return items[i].ID > items[j].ID
	})

	return items
}
