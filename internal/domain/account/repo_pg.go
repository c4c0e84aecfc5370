package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const credentialCols = `id, username, password_hash, is_staff, is_active, last_login, created_at`

func scanCredential(row pgx.Row) (*Credential, error) {
	var c Credential
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.IsStaff, &c.IsActive, &c.LastLogin, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Credential) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO credentials (id, username, password_hash, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		c.ID, c.Username, c.PasswordHash, c.IsStaff, c.IsActive,
	).Scan(&c.CreatedAt)
	if db.IsUniqueViolation(err, "credentials_username_key") {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	return scanCredential(r.conn(ctx).QueryRow(ctx, `SELECT `+credentialCols+` FROM credentials WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Credential, error) {
	return scanCredential(r.conn(ctx).QueryRow(ctx, `SELECT `+credentialCols+` FROM credentials WHERE username = $1`, username))
}

func (r *repoPG) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM credentials WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func (r *repoPG) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE credentials SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update last_login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetStaff(ctx context.Context, id uuid.UUID, staff bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE credentials SET is_staff = $2 WHERE id = $1`, id, staff)
	if err != nil {
		return fmt.Errorf("update is_staff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
