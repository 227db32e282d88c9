package repository

import (
	"context"
	"sync"
	"testing"

	"rewarder/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponRepository_BulkInsert(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	repo := NewCouponRepository(testDB.DB)
	ctx := context.Background()

	t.Run("duplicates within the batch are skipped", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, 1000, []string{"X1", "X1", "X2"})
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)

		count, err := repo.CountUnused(ctx, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("existing codes are skipped", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, 1000, []string{"X2", "X3"})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
	})

	t.Run("empty batch", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, 500, nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})

	t.Run("stock by denomination", func(t *testing.T) {
		_, err := repo.BulkInsert(ctx, 500, []string{"F1"})
		require.NoError(t, err)

		counts, err := repo.CountUnusedByDenomination(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[int]int64{500: 1, 1000: 3}, counts)
	})
}

func TestCouponRepository_ClaimNext(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	repo := NewCouponRepository(testDB.DB)
	ctx := context.Background()
	testutil.SeedUser(t, testDB.DB, 1, 0, false)

	_, err := repo.BulkInsert(ctx, 500, []string{"FIRST", "SECOND"})
	require.NoError(t, err)

	coupon, err := repo.ClaimNext(ctx, 500, 1)
	require.NoError(t, err)
	require.NotNil(t, coupon)
	assert.Equal(t, "FIRST", coupon.Code, "codes are allocated in insertion order")
	assert.True(t, coupon.Used)
	require.NotNil(t, coupon.UsedBy)
	assert.Equal(t, int64(1), *coupon.UsedBy)
	assert.NotNil(t, coupon.UsedAt)

	coupon, err = repo.ClaimNext(ctx, 500, 1)
	require.NoError(t, err)
	require.NotNil(t, coupon)
	assert.Equal(t, "SECOND", coupon.Code)

	coupon, err = repo.ClaimNext(ctx, 500, 1)
	require.NoError(t, err)
	assert.Nil(t, coupon)

	coupon, err = repo.ClaimNext(ctx, 4000, 1)
	require.NoError(t, err)
	assert.Nil(t, coupon)
}

// Concurrent claimers holding open transactions must each get a distinct code.
func TestCouponRepository_ClaimNextConcurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	const claimers = 12
	const stock = 5
	for i := int64(1); i <= claimers; i++ {
		testutil.SeedUser(t, testDB.DB, i, 0, false)
	}
	testutil.SeedCoupons(t, testDB.DB, 2000, testutil.GenerateCodes("C", stock)...)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[string]int64)
		misses  int
		ready   = make(chan struct{})
	)

	for i := int64(1); i <= claimers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			<-ready

			tx, err := testDB.DB.Begin(ctx)
			if !assert.NoError(t, err) {
				return
			}
			defer tx.Rollback(ctx)

			coupon, err := newCouponRepositoryWithTx(tx).ClaimNext(ctx, 2000, userID)
			if !assert.NoError(t, err) {
				return
			}
			if !assert.NoError(t, tx.Commit(ctx)) {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if coupon == nil {
				misses++
				return
			}
			_, dup := claimed[coupon.Code]
			assert.False(t, dup, "code %s allocated twice", coupon.Code)
			claimed[coupon.Code] = userID
		}(i)
	}
	close(ready)
	wg.Wait()

	assert.Len(t, claimed, stock)
	assert.Equal(t, claimers-stock, misses)
	assert.Equal(t, int64(0), testutil.CountRows(t, testDB.DB, "coupons", "NOT used"))
}
