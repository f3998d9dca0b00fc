package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Admin is a back-office account. There is no customer login; carts and
// checkout are anonymous by design.
type Admin struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store reads and writes admin accounts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetByEmail loads an admin account. Returns pgx.ErrNoRows when absent.
func (s *Store) GetByEmail(ctx context.Context, email string) (Admin, error) {
	var a Admin
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM admins WHERE email = $1`, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	return a, err
}

// Upsert creates an admin account or replaces its password hash. Used by the
// seeder, not exposed over HTTP.
func (s *Store) Upsert(ctx context.Context, email, passwordHash string) (Admin, error) {
	var a Admin
	err := s.pool.QueryRow(ctx, `
		INSERT INTO admins (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id, email, password_hash, created_at`,
		email, passwordHash).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	return a, err
}
