package db

import (
	"fmt"

	"github.com/dmelton/wrenchlog/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Motorcycle{},
		&models.MaintenanceTask{},
		&models.MileageLog{},
		&models.ServiceRecord{},
		&models.SweepState{},
		&models.TaskNotification{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
