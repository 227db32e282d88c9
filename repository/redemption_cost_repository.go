package repository

import (
	"context"
	"errors"
	"fmt"

	"rewarder/database"
	"rewarder/models"

	"github.com/jackc/pgx/v5"
)

// RedemptionCostRepository implements denomination pricing
type RedemptionCostRepository struct {
	q queryable
}

// NewRedemptionCostRepository creates a new cost repository
func NewRedemptionCostRepository(db *database.DB) *RedemptionCostRepository {
	return &RedemptionCostRepository{q: db.Pool}
}

func newRedemptionCostRepositoryWithTx(tx queryable) *RedemptionCostRepository {
	return &RedemptionCostRepository{q: tx}
}

// Get returns the cost of a denomination, or nil when it has none
func (r *RedemptionCostRepository) Get(ctx context.Context, denomination int) (*models.RedemptionCost, error) {
	query := `SELECT denomination, points, updated_at FROM redemption_costs WHERE denomination = $1`

	var cost models.RedemptionCost
	err := r.q.QueryRow(ctx, query, denomination).Scan(&cost.Denomination, &cost.Points, &cost.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cost of denomination %d: %w", denomination, err)
	}

	return &cost, nil
}

// GetAll returns every cost ordered by denomination
func (r *RedemptionCostRepository) GetAll(ctx context.Context) ([]*models.RedemptionCost, error) {
	query := `SELECT denomination, points, updated_at FROM redemption_costs ORDER BY denomination`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list costs: %w", err)
	}
	defer rows.Close()

	var costs []*models.RedemptionCost
	for rows.Next() {
		var cost models.RedemptionCost
		if err := rows.Scan(&cost.Denomination, &cost.Points, &cost.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cost: %w", err)
		}
		costs = append(costs, &cost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating costs: %w", err)
	}

	return costs, nil
}

// Set creates or replaces the cost of a denomination
func (r *RedemptionCostRepository) Set(ctx context.Context, denomination int, points int64) (*models.RedemptionCost, error) {
	query := `
		INSERT INTO redemption_costs (denomination, points)
		VALUES ($1, $2)
		ON CONFLICT (denomination) DO UPDATE SET points = EXCLUDED.points
		RETURNING denomination, points, updated_at
	`

	var cost models.RedemptionCost
	err := r.q.QueryRow(ctx, query, denomination, points).Scan(&cost.Denomination, &cost.Points, &cost.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to set cost of denomination %d: %w", denomination, err)
	}

	return &cost, nil
}
