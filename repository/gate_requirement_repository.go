package repository

import (
	"context"
	"errors"
	"fmt"

	"rewarder/database"
	"rewarder/models"

	"github.com/jackc/pgx/v5"
)

const gateColumns = `id, chat_id, invite_link, active, created_at, deactivated_at`

// GateRequirementRepository implements the membership gate list
type GateRequirementRepository struct {
	q queryable
}

// NewGateRequirementRepository creates a new gate requirement repository
func NewGateRequirementRepository(db *database.DB) *GateRequirementRepository {
	return &GateRequirementRepository{q: db.Pool}
}

func newGateRequirementRepositoryWithTx(tx queryable) *GateRequirementRepository {
	return &GateRequirementRepository{q: tx}
}

func scanGate(row pgx.Row) (*models.GateRequirement, error) {
	var g models.GateRequirement
	if err := row.Scan(&g.ID, &g.ChatID, &g.InviteLink, &g.Active, &g.CreatedAt, &g.DeactivatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// Create adds an active requirement.
// A second active requirement for the same chat violates gate_requirements_active_chat_id_idx.
func (r *GateRequirementRepository) Create(ctx context.Context, chatID string, inviteLink *string) (*models.GateRequirement, error) {
	query := `
		INSERT INTO gate_requirements (chat_id, invite_link)
		VALUES ($1, $2)
		RETURNING ` + gateColumns

	gate, err := scanGate(r.q.QueryRow(ctx, query, chatID, inviteLink))
	if err != nil {
		return nil, fmt.Errorf("failed to create gate requirement for %s: %w", chatID, err)
	}

	return gate, nil
}

// GetByID returns a requirement or nil
func (r *GateRequirementRepository) GetByID(ctx context.Context, id int64) (*models.GateRequirement, error) {
	gate, err := scanGate(r.q.QueryRow(ctx, `SELECT `+gateColumns+` FROM gate_requirements WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gate requirement %d: %w", id, err)
	}
	return gate, nil
}

// GetActive returns the active requirements ordered by id
func (r *GateRequirementRepository) GetActive(ctx context.Context) ([]*models.GateRequirement, error) {
	rows, err := r.q.Query(ctx, `SELECT `+gateColumns+` FROM gate_requirements WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gate requirements: %w", err)
	}
	defer rows.Close()

	var gates []*models.GateRequirement
	for rows.Next() {
		gate, err := scanGate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gate requirement: %w", err)
		}
		gates = append(gates, gate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gate requirements: %w", err)
	}

	return gates, nil
}

// Deactivate soft-deletes an active requirement; nil when unknown or already inactive
func (r *GateRequirementRepository) Deactivate(ctx context.Context, id int64) (*models.GateRequirement, error) {
	query := `
		UPDATE gate_requirements
		SET active = FALSE, deactivated_at = NOW()
		WHERE id = $1 AND active
		RETURNING ` + gateColumns

	gate, err := scanGate(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate gate requirement %d: %w", id, err)
	}

	return gate, nil
}
