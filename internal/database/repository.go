package database

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks failures of the underlying storage (connection, query, scan).
// Backends wrap every driver error with it so callers can classify storage outages.
var ErrUnavailable = errors.New("storage unavailable")

// UserStore provides access to users
type UserStore interface {
	// FindUserByUsername returns the user with the given username, or nil if not found
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	// CreateUser inserts a user and returns it with its assigned ID.
	// If the username already exists the existing user is returned.
	CreateUser(ctx context.Context, username string) (*User, error)
}

// TemplateStore provides access to facial templates
type TemplateStore interface {
	// FindTemplateByUser returns the template of a user, or nil if the user has none
	FindTemplateByUser(ctx context.Context, userID int64) (*Template, error)
	// ListTemplates returns all templates ordered by template ID
	ListTemplates(ctx context.Context) ([]Template, error)
	// UpsertTemplate creates the user's template or overwrites its embedding,
	// source image name and enrollment time in place, preserving its ID
	UpsertTemplate(ctx context.Context, userID int64, embedding []byte, sourceName string, enrolledAt time.Time) (*Template, error)
	// CountTemplates returns the number of stored templates
	CountTemplates(ctx context.Context) (int, error)
}

// Store is the complete persistence contract of the service
type Store interface {
	UserStore
	TemplateStore

	// Ping verifies the storage is reachable
	Ping(ctx context.Context) error
	// Close releases the storage resources
	Close() error
}
