package data

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the bot's tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
