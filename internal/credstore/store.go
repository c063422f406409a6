// Package credstore persists the client credential: the session token and the
// user id it belongs to. Both entries are written and erased together.
package credstore

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

const (
	KeyToken  = "token"
	KeyUserID = "userId"
)

var ErrIncomplete = errors.New("credentials incomplete")

type Credentials struct {
	Token  string
	UserID int64
}

// Complete reports whether both entries are present.
func (c Credentials) Complete() bool {
	return c.Token != "" && c.UserID > 0
}

// Store is durable client-side key/value storage for the credential pair.
// Load returns the zero Credentials when nothing is persisted.
type Store interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, c Credentials) error
	Clear(ctx context.Context) error
}

func parseUserID(v string) int64 {
	if v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// MemoryStore keeps the pair in process memory. It backs the "memory" store
// kind and the tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Load(ctx context.Context) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Credentials{
		Token:  m.values[KeyToken],
		UserID: parseUserID(m.values[KeyUserID]),
	}, nil
}

func (m *MemoryStore) Save(ctx context.Context, c Credentials) error {
	if !c.Complete() {
		return ErrIncomplete
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyToken] = c.Token
	m.values[KeyUserID] = strconv.FormatInt(c.UserID, 10)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, KeyToken)
	delete(m.values, KeyUserID)
	return nil
}

// Raw exposes a stored entry to tests.
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Put writes a single entry, bypassing the pair invariant. Tests use it to
// simulate half-written or tampered storage.
func (m *MemoryStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}
