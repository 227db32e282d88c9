package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("failed to insert: %w", &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "gate_requirements_active_chat_id_idx",
	})

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "gate_requirements_active_chat_id_idx"))
	assert.False(t, IsUniqueViolation(err, "coupons_code_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}, ""))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.True(t, IsTransient(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}))
	assert.True(t, IsTransient(&pgconn.PgError{Code: pgerrcode.AdminShutdown}))
	assert.False(t, IsTransient(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsTransient(errors.New("syntax is wrong")))
}
