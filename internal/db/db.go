package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/model"
)

// Init opens the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects to the configured driver without migrating.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.LogSQL {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == "sqlite" && maxOpen <= 0 {
		// One writer; concurrent sqlite connections fail with "database is locked".
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	log := logging.WithComponent("db")

	log.Info().Str("dialect", db.Dialector.Name()).Msg("running database migrations")
	if err := db.AutoMigrate(
		&model.Hostel{},
		&model.Room{},
		&model.Application{},
		&model.Notice{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if err := applyDDL(db); err != nil {
		log.Warn().Err(err).Msg("failed to apply dialect-specific DDL; continuing without it")
	}

	log.Info().Msg("database initialization complete")
	return nil
}

// applyDDL adds the constraints AutoMigrate cannot express. MySQL has no
// partial indexes, so there the engine's duplicate check is the only guard.
func applyDDL(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "postgres", "sqlite":
	default:
		return nil
	}

	ddls := []string{
		// A student holds at most one PENDING or APPROVED application.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_active_student " +
			"ON applications (student_id) WHERE status IN ('PENDING', 'APPROVED')",
		"CREATE INDEX IF NOT EXISTS idx_notices_student_created " +
			"ON notices (student_id, created_at DESC)",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
