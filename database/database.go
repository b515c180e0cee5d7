package database

import (
	"context"
	"fmt"

	"papertrade/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the users and history tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

// WithTx runs fn inside a single database transaction. The transaction is
// rolled back when fn returns an error or panics.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
