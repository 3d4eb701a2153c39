package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/minijohn/internal/store"
)

// UserRepo usuarios en memoria con índice por username.
type UserRepo struct {
	mu         sync.RWMutex
	byID       map[string]store.User
	byUsername map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: map[string]store.User{}, byUsername: map[string]string{}}
}

func (r *UserRepo) List(ctx context.Context) ([]store.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]store.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*store.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := u.Clone()
	return &c, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := r.byID[id].Clone()
	return &c, nil
}

func (r *UserRepo) Put(ctx context.Context, u store.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byUsername[u.Username]; ok && owner != u.ID {
		return false, store.ErrConflict
	}
	prev, exists := r.byID[u.ID]
	if exists && prev.Username != u.Username {
		delete(r.byUsername, prev.Username)
	}
	r.byID[u.ID] = u.Clone()
	r.byUsername[u.Username] = u.ID
	return !exists, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(r.byUsername, u.Username)
	delete(r.byID, id)
	return nil
}

func (r *UserRepo) SetDisabled(ctx context.Context, id string, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Disabled = disabled
	r.byID[id] = u
	return nil
}
