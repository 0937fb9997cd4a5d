package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"babycare-backend/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrEmailTaken is returned when registration hits the users.email unique index.
var ErrEmailTaken = errors.New("email already registered")

const pqUniqueViolation = "23505"

// UsersRepository persists accounts in the users table.
type UsersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUsersRepository creates a users repository.
func NewUsersRepository(db *sql.DB, logger *zap.Logger) *UsersRepository {
	return &UsersRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new account and returns it with store-assigned fields set.
func (r *UsersRepository) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("password_hash is required")
	}

	query := `
		INSERT INTO users (email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	}

	err := r.db.QueryRowContext(ctx, query, email, passwordHash, name).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByEmail returns the account for an email, or ErrNotFound.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	query := `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByID returns the account for an id, or ErrNotFound.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("id is required")
	}

	query := `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UsersRepository) scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var name sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if name.Valid {
		user.Name = name.String
	}

	return &user, nil
}
