package db

import (
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/models"
)

// Migrate applies the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Employee{},
		&models.Client{},
		&models.Job{},
	)
}
