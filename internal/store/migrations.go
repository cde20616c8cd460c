package store

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core tables (App, Snapshot, AppSession, link, Window)
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&App{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Snapshot{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&AppSession{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&SnapshotAppSession{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&Window{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"window", "snapshot_app_session", "app_session", "snapshot", "app",
				)
			},
		},

		// Migration 002: Screenshot classification results
		{
			ID: "002_snapshot_analysis",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&SnapshotAnalysis{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("snapshot_analysis")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}

	return nil
}
