package database

import (
	"context"
	"errors"
	"fmt"

	"papertrade/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Store is the relational persistence layer for users and their ledger.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateUser inserts a new user. A taken username yields ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, username, hash string, cash decimal.Decimal) (*models.User, error) {
	user := &models.User{
		Username: username,
		Hash:     hash,
		Cash:     cash,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return user, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// Holding returns the net share count of symbol owned by the user.
func (s *Store) Holding(ctx context.Context, userID uint, symbol string) (int64, error) {
	return holding(s.db.WithContext(ctx), userID, symbol)
}

// Holdings returns every symbol with a positive net share count, by symbol.
func (s *Store) Holdings(ctx context.Context, userID uint) ([]models.Position, error) {
	var positions []models.Position
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("symbol, CAST(SUM(shares) AS BIGINT) AS shares").
		Where("user_id = ?", userID).
		Group("symbol").
		Having("SUM(shares) > 0").
		Order("symbol").
		Scan(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings for user %d: %w", userID, err)
	}
	return positions, nil
}

// History returns the user's ledger in the order it was written.
func (s *Store) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get history for user %d: %w", userID, err)
	}
	return rows, nil
}

// Buy debits cost from the user's cash and appends the purchase at price to
// the ledger. The debit only applies while cash covers the cost, so two
// concurrent buys cannot both spend the same balance.
func (s *Store) Buy(ctx context.Context, userID uint, symbol string, shares int64, price, cost decimal.Decimal) error {
	return WithTx(ctx, s.db, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND cash >= ?", userID, cost).
			Update("cash", gorm.Expr("cash - ?", cost))
		if res.Error != nil {
			return fmt.Errorf("failed to debit user %d: %w", userID, res.Error)
		}
		if res.RowsAffected == 0 {
			if err := userExists(tx, userID); err != nil {
				return err
			}
			return ErrInsufficientFunds
		}

		return record(tx, userID, symbol, shares, price)
	})
}

// Sell credits proceeds to the user's cash and appends the sale at price to
// the ledger. The credit locks the user row before the holding is re-checked,
// serialising concurrent sells by the same user.
func (s *Store) Sell(ctx context.Context, userID uint, symbol string, shares int64, price, proceeds decimal.Decimal) error {
	return WithTx(ctx, s.db, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("cash", gorm.Expr("cash + ?", proceeds))
		if res.Error != nil {
			return fmt.Errorf("failed to credit user %d: %w", userID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		held, err := holding(tx, userID, symbol)
		if err != nil {
			return err
		}
		if held < shares {
			return ErrInsufficientShares
		}

		return record(tx, userID, symbol, -shares, price)
	})
}

func holding(db *gorm.DB, userID uint, symbol string) (int64, error) {
	var shares int64
	err := db.Model(&models.Transaction{}).
		Select("COALESCE(CAST(SUM(shares) AS BIGINT), 0)").
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Scan(&shares).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get %s holding for user %d: %w", symbol, userID, err)
	}
	return shares, nil
}

func record(tx *gorm.DB, userID uint, symbol string, shares int64, price decimal.Decimal) error {
	entry := models.Transaction{
		UserID: userID,
		Symbol: symbol,
		Shares: shares,
		Price:  price,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func userExists(tx *gorm.DB, userID uint) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
