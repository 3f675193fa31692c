// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/database"
)

// MockStore is an in-memory implementation of database.Store
type MockStore struct {
	mu         sync.RWMutex
	users      map[int64]*database.User
	byUsername map[string]int64
	templates  map[int64]*database.Template // keyed by user ID
	nextUserID int64
	nextTplID  int64
	closed     bool

	// Error injection
	FindUserError     error
	CreateUserError   error
	FindTemplateError error
	ListError         error
	UpsertError       error
	CountError        error
	PingError         error

	// Call counters
	CreateUserCalls int
	UpsertCalls     int
}

var _ database.Store = (*MockStore)(nil)

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		users:      make(map[int64]*database.User),
		byUsername: make(map[string]int64),
		templates:  make(map[int64]*database.Template),
	}
}

// storageError mirrors how real backends wrap driver errors.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, database.ErrUnavailable, err)
}

// FindUserByUsername returns the user with the given username
func (m *MockStore) FindUserByUsername(ctx context.Context, username string) (*database.User, error) {
	if m.FindUserError != nil {
		return nil, storageError("find user", m.FindUserError)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUsername[username]
	if !ok {
		return nil, nil
	}
	u := *m.users[id]
	return &u, nil
}

// CreateUser inserts a user or returns the existing one
func (m *MockStore) CreateUser(ctx context.Context, username string) (*database.User, error) {
	if m.CreateUserError != nil {
		return nil, storageError("create user", m.CreateUserError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateUserCalls++
	if id, ok := m.byUsername[username]; ok {
		u := *m.users[id]
		return &u, nil
	}
	m.nextUserID++
	u := &database.User{ID: m.nextUserID, Username: username}
	m.users[u.ID] = u
	m.byUsername[username] = u.ID
	out := *u
	return &out, nil
}

// FindTemplateByUser returns the template for a user
func (m *MockStore) FindTemplateByUser(ctx context.Context, userID int64) (*database.Template, error) {
	if m.FindTemplateError != nil {
		return nil, storageError("find template", m.FindTemplateError)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[userID]
	if !ok {
		return nil, nil
	}
	return cloneTemplate(t), nil
}

// ListTemplates returns all templates ordered by ID
func (m *MockStore) ListTemplates(ctx context.Context) ([]database.Template, error) {
	if m.ListError != nil {
		return nil, storageError("list templates", m.ListError)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Template, 0, len(m.templates))
	for _, t := range m.templates {
		result = append(result, *cloneTemplate(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpsertTemplate creates or overwrites the template of a user
func (m *MockStore) UpsertTemplate(ctx context.Context, userID int64, embedding []byte, sourceName string, enrolledAt time.Time) (*database.Template, error) {
	if m.UpsertError != nil {
		return nil, storageError("upsert template", m.UpsertError)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	u, ok := m.users[userID]
	if !ok {
		return nil, storageError("upsert template", fmt.Errorf("user %d does not exist", userID))
	}
	t, ok := m.templates[userID]
	if !ok {
		m.nextTplID++
		t = &database.Template{ID: m.nextTplID, UserID: userID}
		m.templates[userID] = t
	}
	t.Username = u.Username
	t.Embedding = append([]byte(nil), embedding...)
	t.SourceImageName = sourceName
	t.EnrolledAt = enrolledAt
	return cloneTemplate(t), nil
}

// CountTemplates returns the number of templates
func (m *MockStore) CountTemplates(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, storageError("count templates", m.CountError)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates), nil
}

// Ping reports the injected ping error, if any
func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return storageError("ping", m.PingError)
	}
	return nil
}

// Close marks the store closed
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// UserCount returns the number of users
func (m *MockStore) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// AddTemplate seeds a user and template directly, bypassing the service
func (m *MockStore) AddTemplate(username string, embedding []byte) database.Template {
	u, _ := m.CreateUser(context.Background(), username)
	t, _ := m.UpsertTemplate(context.Background(), u.ID, embedding, "", time.Now())
	return *t
}

func cloneTemplate(t *database.Template) *database.Template {
	c := *t
	c.Embedding = append([]byte(nil), t.Embedding...)
	return &c
}
