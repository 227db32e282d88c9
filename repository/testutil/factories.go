package testutil

import (
	"context"
	"fmt"
	"testing"

	"rewarder/database"

	"github.com/stretchr/testify/require"
)

// SeedUser inserts a user with the given balance and verified flag
func SeedUser(t *testing.T, db *database.DB, id int64, points int64, verified bool) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, handle, points, verified) VALUES ($1, $2, $3, $4)`,
		id, fmt.Sprintf("user%d", id), points, verified)
	require.NoError(t, err)
}

// SeedCoupons inserts codes of a denomination in the given order
func SeedCoupons(t *testing.T, db *database.DB, denomination int, codes ...string) {
	t.Helper()
	for _, code := range codes {
		_, err := db.Exec(context.Background(),
			`INSERT INTO coupons (code, denomination) VALUES ($1, $2)`, code, denomination)
		require.NoError(t, err)
	}
}

// GenerateCodes returns n distinct codes with a prefix
func GenerateCodes(prefix string, n int) []string {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("%s-%04d", prefix, i)
	}
	return codes
}

// UserPoints reads a user's balance directly
func UserPoints(t *testing.T, db *database.DB, id int64) int64 {
	t.Helper()
	var points int64
	require.NoError(t, db.QueryRow(context.Background(), `SELECT points FROM users WHERE id = $1`, id).Scan(&points))
	return points
}

// CountRows returns the number of rows in a table matching an optional condition
func CountRows(t *testing.T, db *database.DB, table, where string, args ...any) int64 {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var count int64
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&count))
	return count
}
