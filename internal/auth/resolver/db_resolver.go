package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"auth-portal/internal/auth"
	"auth-portal/internal/db"
	"auth-portal/internal/logger"

	"github.com/google/uuid"
)

var (
	ErrNilIdentity = errors.New("resolver: identity is nil")
	// ErrEmailConflict means a user already owns the identity's email but
	// the identity may not be linked to it.
	ErrEmailConflict = errors.New("resolver: email belongs to an account that cannot be linked")
)

// DBResolver resolves identities using the database.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

// Resolve returns the user for identity in three steps: a known
// (provider, subject) pair, an existing user with the same email, or a new
// user. Steps two and three record the identity mapping.
//
// Linking by email requires a verified email on both the identity and the
// existing user. Password sign-ups never verify their address, so they are
// never linked; ErrEmailConflict is returned instead.
func (r *DBResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (string, error) {
	if identity == nil {
		return "", ErrNilIdentity
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("resolver: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT user_id
		FROM identities
		WHERE provider = $1
		  AND provider_user_id = $2
	`, identity.Provider, identity.ProviderUserID).Scan(&userID)
	if err == nil {
		return userID.String(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolver: identity lookup: %w", err)
	}

	var (
		userVerified bool
		hasPassword  bool
	)
	err = tx.QueryRowContext(ctx, `
		SELECT u.id, u.email_verified,
		       EXISTS (SELECT 1 FROM credentials c WHERE c.user_id = u.id)
		FROM users u
		WHERE LOWER(u.email) = $1
	`, email).Scan(&userID, &userVerified, &hasPassword)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (email, email_verified)
			VALUES ($1, $2)
			RETURNING id
		`, email, identity.EmailVerified).Scan(&userID)
		if err != nil {
			return "", fmt.Errorf("resolver: create user: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("resolver: email lookup: %w", err)
	case !identity.EmailVerified || !userVerified:
		logger.Warn("identity not linked by email", map[string]any{
			"provider":          identity.Provider,
			"identity_verified": identity.EmailVerified,
			"user_verified":     userVerified,
			"has_password":      hasPassword,
		})
		return "", ErrEmailConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`, userID, identity.Provider, identity.ProviderUserID)
	if err != nil {
		return "", fmt.Errorf("resolver: link identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("resolver: commit: %w", err)
	}
	return userID.String(), nil
}
