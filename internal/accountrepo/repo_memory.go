package accountrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/rs/zerolog"
)

type accountKey struct {
	userID int64
	kind   domain.AccountKind
}

type memoryAccount struct {
	mu      sync.Mutex
	account domain.Account
}

// RepoMemory keeps accounts in process memory.
//
// Each account has its own mutex, so changes of one account are serialized
// while different accounts are changed concurrently.
type RepoMemory struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[accountKey]*memoryAccount
	now      func() time.Time
}

// NewRepoMemory returns an empty RepoMemory.
func NewRepoMemory() *RepoMemory {
	return &RepoMemory{
		accounts: make(map[accountKey]*memoryAccount),
		now:      time.Now,
	}
}

// Provision creates one account of every kind for the user with the given balance.
func (r *RepoMemory) Provision(ctx context.Context, userID, balance int64) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0, len(domain.AccountKinds))

	for _, kind := range domain.AccountKinds {
		a, err := r.Create(ctx, userID, kind, balance)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, a)
	}

	return accounts, nil
}

// Create creates the account and then returns it.
func (r *RepoMemory) Create(ctx context.Context, userID int64, kind domain.AccountKind, balance int64) (domain.Account, error) {
	if !kind.Valid() {
		return domain.Account{}, domain.ErrInvalidAccountKind
	}

	if balance < 0 && !kind.AllowsNegative() {
		return domain.Account{}, domain.ErrInsufficientFunds
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := accountKey{userID: userID, kind: kind}
	if existing, ok := r.accounts[key]; ok {
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Str("kind", string(kind)).Msg("account already exists")
		return existing.snapshot(), nil
	}

	r.nextID++
	now := r.now().UTC()

	ma := &memoryAccount{
		account: domain.Account{
			ID:        r.nextID,
			UserID:    userID,
			Kind:      kind,
			Balance:   balance,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	r.accounts[key] = ma

	return ma.snapshot(), nil
}

// Get returns the account of the given kind of the user.
func (r *RepoMemory) Get(ctx context.Context, userID int64, kind domain.AccountKind) (domain.Account, error) {
	ma, ok := r.lookup(userID, kind)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return ma.snapshot(), nil
}

// List returns all accounts of the given user.
func (r *RepoMemory) List(ctx context.Context, userID int64) ([]domain.Account, error) {
	r.mu.RLock()
	found := make([]*memoryAccount, 0, len(domain.AccountKinds))

	for key, ma := range r.accounts {
		if key.userID == userID {
			found = append(found, ma)
		}
	}
	r.mu.RUnlock()

	items := make([]domain.Account, 0, len(found))
	for _, ma := range found {
		items = append(items, ma.snapshot())
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}

// AddBalance changes the account's balance by delta and returns the changed account.
//
// The balance check and the write happen under the account mutex.
func (r *RepoMemory) AddBalance(ctx context.Context, userID int64, kind domain.AccountKind, delta int64) (domain.Account, error) {
	ma, ok := r.lookup(userID, kind)
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	ma.mu.Lock()
	defer ma.mu.Unlock()

	newBalance := ma.account.Balance + delta
	if newBalance < 0 && !kind.AllowsNegative() {
		zerolog.Ctx(ctx).Info().
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Int64("balance", ma.account.Balance).
			Int64("delta", delta).
			Msg("insufficient funds")

		return domain.Account{}, domain.ErrInsufficientFunds
	}

	ma.account.Balance = newBalance
	ma.account.UpdatedAt = r.now().UTC()

	return ma.account, nil
}

func (r *RepoMemory) lookup(userID int64, kind domain.AccountKind) (*memoryAccount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ma, ok := r.accounts[accountKey{userID: userID, kind: kind}]

	return ma, ok
}

func (ma *memoryAccount) snapshot() domain.Account {
	ma.mu.Lock()
	defer ma.mu.Unlock()

	return ma.account
}
