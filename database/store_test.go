package database_test

import (
	"context"
	"testing"

	"papertrade/database"
	"papertrade/database/testutil"
	"papertrade/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cashOf(t *testing.T, store *database.Store, id uint) decimal.Decimal {
	t.Helper()
	user, err := store.UserByID(context.Background(), id)
	require.NoError(t, err)
	return user.Cash
}

func TestStore_CreateUser(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(testutil.NewDB(t))

	user, err := store.CreateUser(ctx, "alice", "hash", dec("10000"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	got, err := store.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.Cash.Equal(dec("10000")), "cash = %s", got.Cash)
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)

	_, err := store.CreateUser(ctx, "alice", "hash", dec("10000"))
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "alice", "other", dec("10000"))
	assert.ErrorIs(t, err, database.ErrDuplicateUsername)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStore_UserNotFound(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(testutil.NewDB(t))

	_, err := store.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, database.ErrUserNotFound)

	_, err = store.UserByID(ctx, 42)
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}

func TestStore_Buy(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "1000.00")

	require.NoError(t, store.Buy(ctx, user.ID, "AAA", 10, dec("20.00"), dec("200.00")))

	assert.True(t, cashOf(t, store, user.ID).Equal(dec("800")))
	held, err := store.Holding(ctx, user.ID, "AAA")
	require.NoError(t, err)
	assert.Equal(t, int64(10), held)
}

func TestStore_Buy_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "100.00")

	// unit price is affordable, the total is not
	err := store.Buy(ctx, user.ID, "AAA", 10, dec("20.00"), dec("200.00"))
	assert.ErrorIs(t, err, database.ErrInsufficientFunds)

	assert.True(t, cashOf(t, store, user.ID).Equal(dec("100")))
	history, err := store.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_Buy_ExactBalance(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "200.00")

	require.NoError(t, store.Buy(ctx, user.ID, "AAA", 10, dec("20.00"), dec("200.00")))
	assert.True(t, cashOf(t, store, user.ID).IsZero())
}

func TestStore_Buy_UnknownUser(t *testing.T) {
	store := database.NewStore(testutil.NewDB(t))

	err := store.Buy(context.Background(), 99, "AAA", 1, dec("1"), dec("1"))
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}

func TestStore_Sell(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "1000.00")

	require.NoError(t, store.Buy(ctx, user.ID, "AAA", 10, dec("20.00"), dec("200.00")))
	require.NoError(t, store.Sell(ctx, user.ID, "AAA", 4, dec("25.00"), dec("100.00")))

	assert.True(t, cashOf(t, store, user.ID).Equal(dec("900")))
	held, err := store.Holding(ctx, user.ID, "AAA")
	require.NoError(t, err)
	assert.Equal(t, int64(6), held)
}

func TestStore_Sell_InsufficientShares(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "1000.00")

	require.NoError(t, store.Buy(ctx, user.ID, "AAA", 3, dec("20.00"), dec("60.00")))

	err := store.Sell(ctx, user.ID, "AAA", 4, dec("20.00"), dec("80.00"))
	assert.ErrorIs(t, err, database.ErrInsufficientShares)

	// the credit was rolled back with the rejected sale
	assert.True(t, cashOf(t, store, user.ID).Equal(dec("940")))
	history, err := store.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStore_Holdings(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "10000.00")
	other := testutil.CreateUser(t, db, "bob", "10000.00")

	require.NoError(t, store.Buy(ctx, user.ID, "BBB", 5, dec("10"), dec("50")))
	require.NoError(t, store.Buy(ctx, user.ID, "AAA", 10, dec("20"), dec("200")))
	require.NoError(t, store.Buy(ctx, user.ID, "CCC", 2, dec("5"), dec("10")))
	require.NoError(t, store.Sell(ctx, user.ID, "CCC", 2, dec("5"), dec("10")))
	require.NoError(t, store.Buy(ctx, other.ID, "DDD", 1, dec("1"), dec("1")))

	positions, err := store.Holdings(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Position{
		{Symbol: "AAA", Shares: 10},
		{Symbol: "BBB", Shares: 5},
	}, positions)
}

func TestStore_History(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "1000.00")

	require.NoError(t, store.Buy(ctx, user.ID, "AAA", 10, dec("20"), dec("200")))
	require.NoError(t, store.Sell(ctx, user.ID, "AAA", 4, dec("25"), dec("100")))

	history, err := store.History(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, int64(10), history[0].Shares)
	assert.True(t, history[0].Price.Equal(dec("20")))
	assert.Equal(t, int64(-4), history[1].Shares)
	assert.True(t, history[1].Price.Equal(dec("25")))
	assert.False(t, history[1].CreatedAt.Before(history[0].CreatedAt))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	user := testutil.CreateUser(t, db, "alice", "1000.00")

	assert.Panics(t, func() {
		_ = database.WithTx(ctx, db, func(tx *gorm.DB) error {
			tx.Model(&models.User{}).Where("id = ?", user.ID).Update("cash", 0)
			panic("boom")
		})
	})

	assert.True(t, cashOf(t, store, user.ID).Equal(dec("1000")))
}
