package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository for tests, local development and
// the load generator. Ids, tenant ids and emails are matched case-insensitively.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Principal
	byEmail map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]Principal),
		byEmail: make(map[string]string),
	}
}

// Put inserts or replaces p. A missing ID is filled with a new UUID; the stored
// principal is returned.
func (r *MemoryRepository) Put(p Principal) Principal {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	id := idKey(p.ID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[id]; ok {
		delete(r.byEmail, emailKey(old.TenantID, old.Email))
	}
	r.byID[id] = p
	r.byEmail[emailKey(p.TenantID, p.Email)] = id
	return p
}

// Delete removes the principal with id, if any.
func (r *MemoryRepository) Delete(id string) {
	id = idKey(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		delete(r.byEmail, emailKey(p.TenantID, p.Email))
		delete(r.byID, id)
	}
}

func (r *MemoryRepository) FindByID(ctx context.Context, tenantID, id string) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[idKey(id)]
	if !ok || !strings.EqualFold(p.TenantID, tenantID) {
		return Principal{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, tenantID, email string) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[emailKey(tenantID, email)]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return r.byID[id], nil
}

func idKey(id string) string {
	return strings.ToLower(id)
}

func emailKey(tenantID, email string) string {
	return idKey(tenantID) + "\x00" + strings.ToLower(strings.TrimSpace(email))
}
