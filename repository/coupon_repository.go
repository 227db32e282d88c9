package repository

import (
	"context"
	"errors"
	"fmt"

	"rewarder/database"
	"rewarder/models"

	"github.com/jackc/pgx/v5"
)

// CouponRepository implements the code pool
type CouponRepository struct {
	q queryable
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *database.DB) *CouponRepository {
	return &CouponRepository{q: db.Pool}
}

// newCouponRepositoryWithTx creates a new coupon repository with a transaction
func newCouponRepositoryWithTx(tx queryable) *CouponRepository {
	return &CouponRepository{q: tx}
}

// BulkInsert adds codes in submission order so they are allocated first-in first-out.
// Codes that already exist, or repeat within the batch, are skipped.
func (r *CouponRepository) BulkInsert(ctx context.Context, denomination int, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO coupons (code, denomination)
		SELECT code, $2
		FROM unnest($1::text[]) WITH ORDINALITY AS input(code, ord)
		ORDER BY ord
		ON CONFLICT (code) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, codes, denomination)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %d codes of denomination %d: %w", len(codes), denomination, err)
	}

	return int(result.RowsAffected()), nil
}

// CountUnused returns the number of unused codes of a denomination
func (r *CouponRepository) CountUnused(ctx context.Context, denomination int) (int64, error) {
	query := `SELECT COUNT(*) FROM coupons WHERE denomination = $1 AND NOT used`

	var count int64
	if err := r.q.QueryRow(ctx, query, denomination).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unused codes of denomination %d: %w", denomination, err)
	}

	return count, nil
}

// CountUnusedByDenomination returns unused counts for every denomination that has any
func (r *CouponRepository) CountUnusedByDenomination(ctx context.Context) (map[int]int64, error) {
	query := `
		SELECT denomination, COUNT(*)
		FROM coupons
		WHERE NOT used
		GROUP BY denomination
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count unused codes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var denomination int
		var count int64
		if err := rows.Scan(&denomination, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stock row: %w", err)
		}
		counts[denomination] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock rows: %w", err)
	}

	return counts, nil
}

// ClaimNext marks the oldest unused code of a denomination as used by claimantID.
// Rows locked by concurrent claimers are skipped rather than waited on, so
// competing transactions each take a distinct code. Returns nil, nil when
// nothing is claimable.
func (r *CouponRepository) ClaimNext(ctx context.Context, denomination int, claimantID int64) (*models.Coupon, error) {
	query := `
		WITH next AS (
			SELECT id
			FROM coupons
			WHERE denomination = $1 AND NOT used
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE coupons c
		SET used = TRUE, used_by = $2, used_at = NOW()
		FROM next
		WHERE c.id = next.id
		RETURNING c.id, c.code, c.denomination, c.used, c.used_by, c.used_at, c.created_at
	`

	var coupon models.Coupon
	err := r.q.QueryRow(ctx, query, denomination, claimantID).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Denomination,
		&coupon.Used,
		&coupon.UsedBy,
		&coupon.UsedAt,
		&coupon.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim code of denomination %d: %w", denomination, err)
	}

	return &coupon, nil
}
