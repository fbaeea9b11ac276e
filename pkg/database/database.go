package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/maloba12/umutulo/internal/model"
	"github.com/maloba12/umutulo/pkg/config"
)

var DB *gorm.DB

// InitDB initializes the database connection with the provided configuration
func InitDB(cfg *config.Config) error {
	var err error

	// Set default log level if not specified
	logLevel := cfg.DB.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	// Connect to the database with DisableAutoPrepare option to prevent "prepared statement already exists" errors
	pgConfig := postgres.Config{
		DSN:                  cfg.DB.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	DB, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return err
	}

	// Configure connection pool
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}

	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}

	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	// AutoMigrate will automatically create or update the table structure based on our models
	return DB.AutoMigrate(
		&model.Church{},
		&model.User{},
		&model.Member{},
		&model.Transaction{},
		&model.Blob{},
	)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
