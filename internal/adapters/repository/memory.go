package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/okian/tally/internal/domain/model"
)

// MemoryStore is an in-process Store used by tests and the memory storage
// mode. A single RWMutex guards both tables; the dataset is small enough
// that sharding would buy nothing here.
type MemoryStore struct {
	mu         sync.RWMutex
	results    map[int64]model.Result
	users      map[int64]model.User
	nextResult int64
	nextUser   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[int64]model.Result),
		users:   make(map[int64]model.User),
	}
}

var _ Store = (*MemoryStore)(nil)

// FindByID implements Store.
func (m *MemoryStore) FindByID(_ context.Context, id int64) (model.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return model.Result{}, ErrResultNotFound
	}
	return r, nil
}

// FindAllSorted implements Store.
func (m *MemoryStore) FindAllSorted(_ context.Context, field, order string) ([]model.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Result, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	sortResults(out, field, order)
	return out, nil
}

// FindOwnedBySorted implements Store.
func (m *MemoryStore) FindOwnedBySorted(_ context.Context, ownerEmail, field, order string) ([]model.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner := strings.ToLower(ownerEmail)
	var out []model.Result
	for _, r := range m.results {
		if strings.ToLower(r.User.Email) == owner {
			out = append(out, r)
		}
	}
	sortResults(out, field, order)
	return out, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, r *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		m.nextResult++
		r.ID = m.nextResult
	}
	m.results[r.ID] = *r
	return nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[id]; !ok {
		return ErrResultNotFound
	}
	delete(m.results, id)
	return nil
}

// FindUserByEmail implements Store.
func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) == key {
			return u, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

// FindUserByID implements Store.
func (m *MemoryStore) FindUserByID(_ context.Context, id int64) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// FindUsersSorted implements Store.
func (m *MemoryStore) FindUsersSorted(_ context.Context, field string) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	switch NormalizeUserSort(field) {
	case "email":
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
		})
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return out, nil
}

// AddUser implements Store.
func (m *MemoryStore) AddUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextUser++
		u.ID = m.nextUser
	}
	m.users[u.ID] = *u
	return nil
}

// CountResults implements Store.
func (m *MemoryStore) CountResults(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}

func sortResults(rs []model.Result, field, order string) {
	field, order = NormalizeSort(field, order)
	less := func(i, j int) bool { return rs[i].ID < rs[j].ID }
	switch field {
	case "time":
		less = func(i, j int) bool {
			if rs[i].Time.Equal(rs[j].Time) {
				return rs[i].ID < rs[j].ID
			}
			return rs[i].Time.Before(rs[j].Time)
		}
	case "result":
		less = func(i, j int) bool {
			if rs[i].Score == rs[j].Score {
				return rs[i].ID < rs[j].ID
			}
			return rs[i].Score < rs[j].Score
		}
	}
	if order == "desc" {
		asc := less
		less = func(i, j int) bool { return asc(j, i) }
	}
	sort.Slice(rs, less)
}
