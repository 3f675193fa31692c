package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/database"
)

// Store provides PostgreSQL-backed user and template storage.
type Store struct {
	pool *Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store on an existing pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// unavailable wraps a driver error so callers can classify it as a storage outage.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, database.ErrUnavailable, err)
}

// FindUserByUsername returns the user with the given username, or nil if not found.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*database.User, error) {
	var u database.User
	err := s.pool.QueryRow(ctx, `SELECT id, username FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find user", err)
	}
	return &u, nil
}

// CreateUser inserts a user, returning the existing row when the username is taken.
func (s *Store) CreateUser(ctx context.Context, username string) (*database.User, error) {
	query := `
		INSERT INTO users (username)
		VALUES ($1)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username
	`

	var u database.User
	if err := s.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username); err != nil {
		return nil, unavailable("create user", err)
	}
	return &u, nil
}

// FindTemplateByUser returns the template of a user, or nil if none exists.
func (s *Store) FindTemplateByUser(ctx context.Context, userID int64) (*database.Template, error) {
	query := `
		SELECT t.id, t.user_id, u.username, t.facial_embedding, t.image_url, t.enrollment_date
		FROM facial_templates t
		JOIN users u ON u.id = t.user_id
		WHERE t.user_id = $1
	`

	t, err := scanTemplate(s.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find template", err)
	}
	return t, nil
}

// ListTemplates returns every template ordered by ID.
func (s *Store) ListTemplates(ctx context.Context) ([]database.Template, error) {
	query := `
		SELECT t.id, t.user_id, u.username, t.facial_embedding, t.image_url, t.enrollment_date
		FROM facial_templates t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, unavailable("list templates", err)
	}
	defer rows.Close()

	var templates []database.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, unavailable("scan template", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate templates", err)
	}
	return templates, nil
}

// UpsertTemplate writes the user's template in a single statement; the template ID
// survives updates.
func (s *Store) UpsertTemplate(ctx context.Context, userID int64, embedding []byte, sourceName string, enrolledAt time.Time) (*database.Template, error) {
	query := `
		WITH t AS (
			INSERT INTO facial_templates (user_id, facial_embedding, image_url, enrollment_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				facial_embedding = EXCLUDED.facial_embedding,
				image_url = EXCLUDED.image_url,
				enrollment_date = EXCLUDED.enrollment_date
			RETURNING id, user_id, facial_embedding, image_url, enrollment_date
		)
		SELECT t.id, t.user_id, u.username, t.facial_embedding, t.image_url, t.enrollment_date
		FROM t
		JOIN users u ON u.id = t.user_id
	`

	t, err := scanTemplate(s.pool.QueryRow(ctx, query, userID, embedding, nullString(sourceName), enrolledAt))
	if err != nil {
		return nil, unavailable("upsert template", err)
	}
	return t, nil
}

// CountTemplates returns the number of stored templates.
func (s *Store) CountTemplates(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM facial_templates`).Scan(&count); err != nil {
		return 0, unavailable("count templates", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*database.Template, error) {
	var t database.Template
	var imageURL sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.Embedding, &imageURL, &t.EnrolledAt); err != nil {
		return nil, err
	}
	t.SourceImageName = imageURL.String
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
