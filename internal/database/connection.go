// internal/database/connection.go
package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brandgrid/licensing-backend/internal/config"
	"github.com/brandgrid/licensing-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Asset{},
		&models.License{},
		&models.RenewalOffer{},
		&models.Dispute{},
		&models.Transaction{},
		&models.AuditLog{},
		&models.AdminNotification{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// License indexes
		"CREATE INDEX IF NOT EXISTS idx_licenses_asset_status ON licenses(asset_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_brand ON licenses(brand_id)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_dates ON licenses(start_date, end_date)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_parent ON licenses(parent_license_id)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_created_at ON licenses(created_at DESC)",

		// Offer indexes. The partial unique index is the hard backstop for the
		// one-active-offer-per-license invariant; service-level supersession is
		// best effort and a lost race surfaces as a unique violation.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_renewal_offers_one_active ON renewal_offers(license_id) WHERE status = 'active' AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_renewal_offers_license ON renewal_offers(license_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_renewal_offers_expires ON renewal_offers(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_renewal_offers_created_at ON renewal_offers(created_at DESC)",

		// Dispute and transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_disputes_license_status ON disputes(license_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_brand_status ON transactions(brand_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_license ON transactions(license_id)",

		// Asset indexes
		"CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_assets_category ON assets(category)",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_status ON admin_notifications(status, priority)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_type ON admin_notifications(type, created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Name:   "System Administrator",
			Email:  "admin@brandgrid.io",
			Role:   models.UserRoleAdmin,
			Status: models.UserStatusActive,
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
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

	return tx.Commit().Error
}

// WithAssetLock runs fn inside a transaction holding the per-asset advisory
// lock. The lock brackets load-existing-licenses, conflict-check and persist
// as one critical section, so two concurrent exclusive grants on the same
// asset cannot both succeed. Released automatically at commit/rollback.
func WithAssetLock(db *gorm.DB, assetID uuid.UUID, fn func(tx *gorm.DB) error) error {
	return WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "asset:"+assetID.String()).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

// WithLicenseLock is the per-license critical section used by offer-state
// mutation and successor creation during acceptance.
func WithLicenseLock(db *gorm.DB, licenseID uuid.UUID, fn func(tx *gorm.DB) error) error {
	return WithTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "license:"+licenseID.String()).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505), e.g. from the one-active-offer partial index.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
