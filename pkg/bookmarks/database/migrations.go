package database

import (
	"fmt"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"gorm.io/gorm"
)

// Migration is one versioned schema step. Versions are applied in order and
// recorded in schema_migrations so each runs once.
type Migration struct {
	Version     string
	Description string
	Up          func(tx *gorm.DB) error
}

// SchemaMigration records an applied migration.
type SchemaMigration struct {
	Version   string `gorm:"primarykey;size:64"`
	AppliedAt time.Time
}

// Migrations returns the ordered schema history.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     "0001_create_users",
			Description: "users table",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{})
			},
		},
		{
			Version:     "0002_create_bookmarks",
			Description: "bookmarks table with unique url and short_url",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Bookmark{})
			},
		},
		{
			Version:     "0003_insert_visits_table",
			Description: "visits table referencing bookmarks with cascading delete",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Visit{})
			},
		},
		{
			Version:     "0004_create_api_keys",
			Description: "personal API keys",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.APIKey{})
			},
		},
	}
}

// Migrate applies every pending migration and returns the versions it ran.
func Migrate(db *gorm.DB) ([]string, error) {
	return apply(db, Migrations())
}

func apply(db *gorm.DB, migrations []Migration) ([]string, error) {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var done []SchemaMigration
	if err := db.Find(&done).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(done))
	for _, m := range done {
		applied[m.Version] = true
	}

	var ran []string
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("migration %s: %w", m.Version, err)
		}
		ran = append(ran, m.Version)
	}
	return ran, nil
}
