package database

import (
	"fmt"

	"wotcache/internal/database/models"

	"gorm.io/gorm"
)

const domainIndex = "idx_domain_reputation_domain"

// RunMigrations creates or updates the schema. The unique domain index is
// checked explicitly since one-record-per-domain depends on it.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.DomainReputation{}); err != nil {
		return err
	}
	if !db.Migrator().HasIndex(&models.DomainReputation{}, domainIndex) {
		return fmt.Errorf("missing unique index %s", domainIndex)
	}
	return nil
}
