package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"babycare-backend/internal/config"
	"babycare-backend/internal/models"
	"babycare-backend/internal/repository"
)

func setupAuthService(t *testing.T) (sqlmock.Sqlmock, AuthService) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	users := repository.NewUsersRepository(db, logger)

	cfg := &config.AuthConfig{
		JWTSecret:          "test-secret",
		TokenExpireMinutes: 30,
		BcryptCost:         bcrypt.MinCost,
	}

	return mock, NewAuthService(users, cfg, logger)
}

func userRows(t *testing.T, id int64, email, password string) *sqlmock.Rows {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "created_at", "updated_at"}).
		AddRow(id, email, string(hash), "Jo", now, now)
}

func TestRegister_Success(t *testing.T) {
	mock, svc := setupAuthService(t)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("parent@example.com", sqlmock.AnyArg(), "Jo").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    " Parent@Example.com ",
		Password: "password123",
		Name:     "Jo",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "parent@example.com", user.Email)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_EmailTaken(t *testing.T) {
	mock, svc := setupAuthService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("parent@example.com", sqlmock.AnyArg(), "").
		WillReturnError(&pq.Error{Code: "23505"})

	user, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "parent@example.com",
		Password: "password123",
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Success(t *testing.T) {
	mock, svc := setupAuthService(t)

	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("parent@example.com").
		WillReturnRows(userRows(t, 2, "parent@example.com", "password123"))

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "parent@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(2), resp.User.ID)

	claims, err := svc.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claims.UserID)
	assert.Equal(t, "parent@example.com", claims.Email)
	assert.Equal(t, "parent@example.com", claims.Subject)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	mock, svc := setupAuthService(t)

	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("parent@example.com").
		WillReturnRows(userRows(t, 2, "parent@example.com", "password123"))

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "parent@example.com",
		Password: "wrong",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_UnknownEmail(t *testing.T) {
	mock, svc := setupAuthService(t)

	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyToken_Invalid(t *testing.T) {
	_, svc := setupAuthService(t)

	claims, err := svc.VerifyToken("not-a-token")

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	users := repository.NewUsersRepository(db, logger)

	issuer := NewAuthService(users, &config.AuthConfig{
		JWTSecret:          "secret-a",
		TokenExpireMinutes: 30,
		BcryptCost:         bcrypt.MinCost,
	}, logger)
	verifier := NewAuthService(users, &config.AuthConfig{
		JWTSecret:          "secret-b",
		TokenExpireMinutes: 30,
		BcryptCost:         bcrypt.MinCost,
	}, logger)

	resp, err := issuer.(*authService).issueToken(&models.User{ID: 1, Email: "parent@example.com"})
	require.NoError(t, err)

	claims, err := verifier.VerifyToken(resp.AccessToken)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	users := repository.NewUsersRepository(db, logger)

	svc := NewAuthService(users, &config.AuthConfig{
		JWTSecret:          "test-secret",
		TokenExpireMinutes: -1,
		BcryptCost:         bcrypt.MinCost,
	}, logger)

	impl := svc.(*authService)
	resp, err := impl.issueToken(&models.User{ID: 3, Email: "parent@example.com"})
	require.NoError(t, err)

	claims, err := svc.VerifyToken(resp.AccessToken)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
