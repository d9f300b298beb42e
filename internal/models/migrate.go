package models

import "gorm.io/gorm"

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PropertyLocation{},
		&PropertyData{},
		&PropertyImage{},
		&TravelTime{},
		&PropertyExclusion{},
		&ReviewedProperty{},
		&ReviewDate{},
	)
}
