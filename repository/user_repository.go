package repository

import (
	"context"
	"errors"
	"fmt"

	"rewarder/database"
	"rewarder/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, handle, points, referrals, referred_by, verified, verify_token, state, state_param, created_at, updated_at`

// UserRepository implements the ledger store
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row, extra ...any) (*models.User, error) {
	var user models.User
	dest := []any{
		&user.ID,
		&user.Handle,
		&user.Points,
		&user.Referrals,
		&user.ReferredBy,
		&user.Verified,
		&user.VerifyToken,
		&user.StateTag,
		&user.StateParam,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	return user, nil
}

// Upsert creates the user with zero balances, or refreshes only the handle of an existing one.
// A nil handle keeps whatever handle is stored.
func (r *UserRepository) Upsert(ctx context.Context, id int64, handle *string) (*models.User, bool, error) {
	query := `
		INSERT INTO users (id, handle)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET handle = COALESCE(EXCLUDED.handle, users.handle)
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	var created bool
	user, err := scanUser(r.q.QueryRow(ctx, query, id, handle), &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user %d: %w", id, err)
	}

	return user, created, nil
}

// AddPoints applies delta only if the balance stays non-negative.
// Returns nil, nil when the user is absent or the balance would go negative.
func (r *UserRepository) AddPoints(ctx context.Context, id int64, delta int64) (*models.User, error) {
	query := `
		UPDATE users
		SET points = points + $2
		WHERE id = $1 AND points + $2 >= 0
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, delta))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add %d points to user %d: %w", delta, id, err)
	}

	return user, nil
}

// DeductPoints subtracts amount only if the balance covers it.
// Returns nil, nil when the user is absent or cannot afford it.
func (r *UserRepository) DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET points = points - $2
		WHERE id = $1 AND points >= $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deduct %d points from user %d: %w", amount, id, err)
	}

	return user, nil
}

// SetReferrer records the referrer exactly once.
// It reports false when the referrer is already set, is the user, or does not exist.
func (r *UserRepository) SetReferrer(ctx context.Context, id int64, referrerID int64) (bool, error) {
	query := `
		UPDATE users
		SET referred_by = $2
		WHERE id = $1
		  AND referred_by IS NULL
		  AND id <> $2
		  AND EXISTS (SELECT 1 FROM users WHERE id = $2)
	`

	result, err := r.q.Exec(ctx, query, id, referrerID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer of user %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordReferral credits a referrer with reward points and one referral
func (r *UserRepository) RecordReferral(ctx context.Context, referrerID int64, reward int64) (*models.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, referrals = referrals + 1
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, referrerID, reward))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit referral to user %d: %w", referrerID, err)
	}

	return user, nil
}

// SetVerified flips the verified flag; changed is false when it was already set
func (r *UserRepository) SetVerified(ctx context.Context, id int64) (*models.User, bool, error) {
	query := `
		WITH target AS (
			SELECT id, verified AS was_verified FROM users WHERE id = $1 FOR UPDATE
		)
		UPDATE users u
		SET verified = TRUE
		FROM target
		WHERE u.id = target.id
		RETURNING ` + prefixed("u", userColumns) + `, NOT target.was_verified
	`

	var changed bool
	user, err := scanUser(r.q.QueryRow(ctx, query, id), &changed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to verify user %d: %w", id, err)
	}

	return user, changed, nil
}

// VerifyByToken flips the verified flag of the token's owner
func (r *UserRepository) VerifyByToken(ctx context.Context, token string) (*models.User, bool, error) {
	query := `
		WITH target AS (
			SELECT id, verified AS was_verified FROM users WHERE verify_token = $1 FOR UPDATE
		)
		UPDATE users u
		SET verified = TRUE
		FROM target
		WHERE u.id = target.id
		RETURNING ` + prefixed("u", userColumns) + `, NOT target.was_verified
	`

	var changed bool
	user, err := scanUser(r.q.QueryRow(ctx, query, token), &changed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to verify by token: %w", err)
	}

	return user, changed, nil
}

// EnsureVerifyToken stores candidate only if the user has no token yet and returns the stored token.
// Returns an empty string when the user does not exist.
func (r *UserRepository) EnsureVerifyToken(ctx context.Context, id int64, candidate string) (string, error) {
	query := `
		UPDATE users
		SET verify_token = COALESCE(verify_token, $2)
		WHERE id = $1
		RETURNING verify_token
	`

	var token string
	err := r.q.QueryRow(ctx, query, id, candidate).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to ensure verification token for user %d: %w", id, err)
	}

	return token, nil
}

// SetState persists a conversation state
func (r *UserRepository) SetState(ctx context.Context, id int64, tag *string, param *int64) (bool, error) {
	query := `
		UPDATE users
		SET state = $2, state_param = $3
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, tag, param)
	if err != nil {
		return false, fmt.Errorf("failed to set state for user %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
