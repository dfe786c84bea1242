package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

type ConnectionConfig struct {
	DatabaseURL     string
	IsDevelopment   bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ServiceName     string
}

func NewConnectionWithConfig(config ConnectionConfig) (*DB, error) {
	db, err := gorm.Open(postgres.Open(config.DatabaseURL), gormConfig(config.IsDevelopment))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// The pipeline is a single batch writer plus the input loaders
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	conn := &DB{db}
	if err := conn.HealthCheck(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"service":           config.ServiceName,
		"max_idle_conns":    config.MaxIdleConns,
		"max_open_conns":    config.MaxOpenConns,
		"conn_max_lifetime": config.ConnMaxLifetime,
	}).Info("Database connection established successfully")

	return conn, nil
}

// NewSQLiteConnection opens a sqlite database, used by tests and local dry runs.
// A single connection keeps in-memory databases shared across queries.
func NewSQLiteConnection(dsn string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(false))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return &DB{db}, nil
}

func gormConfig(isDevelopment bool) *gorm.Config {
	logLevel := logger.Error
	if isDevelopment {
		logLevel = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: false,
	}
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) HealthCheck() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
