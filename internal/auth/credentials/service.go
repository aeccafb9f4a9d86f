package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"auth-portal/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrInvalidEmail       = errors.New("invalid email address")
)

type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

// Register creates a user with password credentials for email. Any
// existing user with that email, including one first seen through OAuth,
// is ErrAlreadyRegistered: a password is never attached to an account the
// caller has not proven to own.
func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	// hash before touching the database so a weak password leaves no user row
	hash, version, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("credentials: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&userID)
	switch {
	case err == nil:
		return "", ErrAlreadyRegistered
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("credentials: lookup user: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, email_verified)
		VALUES ($1, false)
		RETURNING id
	`, email).Scan(&userID)
	if isUniqueViolation(err) {
		// lost a race with another registration or an OAuth sign-up
		return "", ErrAlreadyRegistered
	}
	if err != nil {
		return "", fmt.Errorf("credentials: create user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)
	if err != nil {
		return "", fmt.Errorf("credentials: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("credentials: commit: %w", err)
	}
	return userID.String(), nil
}

// Authenticate returns the user id for a matching email and password.
// Unknown users and wrong passwords are both ErrInvalidCredentials and cost
// one bcrypt comparison each. Database failures are returned wrapped.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	var cred Credential
	err = s.db.QueryRowContext(ctx, `
		SELECT c.user_id, c.password_hash, c.hash_version
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
		  AND u.status = 'active'
	`, email).Scan(&cred.UserID, &cred.PasswordHash, &cred.HashVersion)
	if errors.Is(err, sql.ErrNoRows) {
		_ = verifyPassword(dummyHash(), password)
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("credentials: lookup: %w", err)
	}

	if cred.HashVersion != HashVersionBcrypt {
		return "", ErrInvalidCredentials
	}
	if err := verifyPassword(cred.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return cred.UserID, nil
}

var verifyPassword = VerifyPassword

// dummyHash is compared against when no account matches, so unknown emails
// take as long as wrong passwords.
var dummyHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("no-such-account-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("credentials: dummy hash: %v", err))
	}
	return string(hash)
})

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
