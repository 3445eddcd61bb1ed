package identity

import (
	"context"
	"sync"

	"github.com/toxic-toad/aquaventure/internal/domain"
)

// AccountRepository stores accounts. Emails are stored normalized and
// are unique.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	FindByID(ctx context.Context, id string) (domain.Account, error)
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
}

type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryRepository) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[account.Email]; ok {
		return ErrEmailInUse
	}
	m.byID[account.ID] = account
	m.byEmail[account.Email] = account.ID
	return nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.byID[id]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryRepository) Update(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[account.ID]; !ok {
		return ErrAccountNotFound
	}
	m.byID[account.ID] = account
	return nil
}
