package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kozaktomas/facial-recognition/internal/database"
)

// Store provides MariaDB/MySQL-backed user and template storage.
type Store struct {
	pool *Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new MariaDB store on an existing pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

const selectTemplate = `
	SELECT t.id, t.user_id, u.username, t.facial_embedding, t.image_url, t.enrollment_date
	FROM facial_templates t
	JOIN users u ON u.id = t.user_id
`

// FindUserByUsername returns the user with the given username, or nil if not found.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*database.User, error) {
	var u database.User
	err := s.pool.db.QueryRowContext(ctx, `SELECT id, username FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find user", err)
	}
	return &u, nil
}

// CreateUser inserts a user and returns the stored row; LAST_INSERT_ID(id) makes a
// duplicate report the existing ID.
func (s *Store) CreateUser(ctx context.Context, username string) (*database.User, error) {
	res, err := s.pool.db.ExecContext(ctx,
		`INSERT INTO users (username) VALUES (?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`, username)
	if err != nil {
		return nil, unavailable("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, unavailable("create user", err)
	}

	var u database.User
	if err := s.pool.db.QueryRowContext(ctx, `SELECT id, username FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username); err != nil {
		return nil, unavailable("create user", err)
	}
	return &u, nil
}

// FindTemplateByUser returns the template of a user, or nil if none exists.
func (s *Store) FindTemplateByUser(ctx context.Context, userID int64) (*database.Template, error) {
	t, err := scanTemplate(s.pool.db.QueryRowContext(ctx, selectTemplate+` WHERE t.user_id = ?`, userID))
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
	rows, err := s.pool.db.QueryContext(ctx, selectTemplate+` ORDER BY t.id`)
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

// UpsertTemplate writes the user's template and reads it back in one transaction.
func (s *Store) UpsertTemplate(ctx context.Context, userID int64, embedding []byte, sourceName string, enrolledAt time.Time) (*database.Template, error) {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("upsert template", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
		INSERT INTO facial_templates (user_id, facial_embedding, image_url, enrollment_date)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			facial_embedding = VALUES(facial_embedding),
			image_url = VALUES(image_url),
			enrollment_date = VALUES(enrollment_date)
	`
	res, err := tx.ExecContext(ctx, query, userID, embedding, nullString(sourceName), enrolledAt.UTC())
	if err != nil {
		return nil, unavailable("upsert template", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, unavailable("upsert template", err)
	}

	t, err := scanTemplate(tx.QueryRowContext(ctx, selectTemplate+` WHERE t.id = ?`, id))
	if err != nil {
		return nil, unavailable("read upserted template", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit template", err)
	}
	return t, nil
}

// CountTemplates returns the number of stored templates.
func (s *Store) CountTemplates(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facial_templates`).Scan(&count); err != nil {
		return 0, unavailable("count templates", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.db.PingContext(ctx); err != nil {
		return unavailable("ping database", err)
	}
	return nil
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
