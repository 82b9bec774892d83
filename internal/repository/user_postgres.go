package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUser(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query, user.Email, user.Name, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.User{}, fmt.Errorf("email %q: %w", user.Email, ErrDuplicate)
		}
		return model.User{}, err
	}
	return created, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1`

	row := r.db.QueryRowContext(ctx, query, email)
	return scanUser(row)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, userID string) (model.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return model.User{}, ErrNotFound
	}

	query := `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, userID)
	return scanUser(row)
}

func scanUser(row scannable) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
