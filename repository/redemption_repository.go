package repository

import (
	"context"
	"fmt"

	"rewarder/database"
	"rewarder/models"
)

// RedemptionRepository implements the append-only redemption log
type RedemptionRepository struct {
	q queryable
}

// NewRedemptionRepository creates a new redemption repository
func NewRedemptionRepository(db *database.DB) *RedemptionRepository {
	return &RedemptionRepository{q: db.Pool}
}

func newRedemptionRepositoryWithTx(tx queryable) *RedemptionRepository {
	return &RedemptionRepository{q: tx}
}

// Create appends a redemption and fills its id and timestamp
func (r *RedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	query := `
		INSERT INTO redemptions (user_id, denomination, code, points_spent)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		redemption.UserID,
		redemption.Denomination,
		redemption.Code,
		redemption.PointsSpent,
	).Scan(&redemption.ID, &redemption.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record redemption of %s: %w", redemption.Code, err)
	}

	return nil
}

// GetRecent returns the latest redemptions, newest first
func (r *RedemptionRepository) GetRecent(ctx context.Context, limit int) ([]*models.Redemption, error) {
	query := `
		SELECT id, user_id, denomination, code, points_spent, created_at
		FROM redemptions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []*models.Redemption
	for rows.Next() {
		var rd models.Redemption
		if err := rows.Scan(&rd.ID, &rd.UserID, &rd.Denomination, &rd.Code, &rd.PointsSpent, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating redemptions: %w", err)
	}

	return redemptions, nil
}
