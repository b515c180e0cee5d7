package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"papertrade/database"
	"papertrade/database/testutil"
	"papertrade/lookup"
	"papertrade/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// fakePrices serves quotes from a fixed table.
type fakePrices struct {
	mu     sync.Mutex
	prices map[string]string
	down   bool
	calls  []string
}

func newFakePrices(prices map[string]string) *fakePrices {
	return &fakePrices{prices: prices}
}

func (f *fakePrices) Lookup(_ context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)

	if f.down {
		return nil, fmt.Errorf("%w: connection refused", lookup.ErrTransport)
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", lookup.ErrNotFound, symbol)
	}
	return &models.Quote{
		Symbol: symbol,
		Name:   symbol + " Inc.",
		Price:  decimal.RequireFromString(price),
	}, nil
}

func (f *fakePrices) set(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
}

type fixture struct {
	trading *Trading
	store   *database.Store
	db      *gorm.DB
	prices  *fakePrices
}

func newFixture(t *testing.T, prices map[string]string) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := database.NewStore(db)
	fake := newFakePrices(prices)
	trading := NewTrading(store, fake, decimal.RequireFromString("10000.00"))
	trading.hashCost = bcrypt.MinCost
	return &fixture{trading: trading, store: store, db: db, prices: fake}
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.trading.Register(context.Background(), RegisterForm{
		Username:     username,
		Password:     "hunter2",
		Confirmation: "hunter2",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) userWithCash(t *testing.T, username, cash string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, f.db, username, cash)
}

func (f *fixture) cash(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	user, err := f.store.UserByID(context.Background(), userID)
	require.NoError(t, err)
	return user.Cash
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
