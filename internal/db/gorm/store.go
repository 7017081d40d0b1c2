package gorm

import (
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // SQLite driver with FTS5 support
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store represents the GORM database connection with sqlite-vec support.
type Store struct {
	DB    *gorm.DB
	sqlDB *sql.DB // For FTS5 and sqlite-vec operations that require raw SQL
}

// Config holds database configuration.
type Config struct {
	Path       string          // Path to SQLite database file
	MaxConns   int             // Maximum number of open connections (default: 4)
	VectorDims int             // Embedding dimensions for the vec0 cache table
	LogLevel   logger.LogLevel // GORM log level (logger.Silent for production)
}

// NewStore creates a new Store with WAL mode enabled and sqlite-vec registered.
// WAL mode and foreign keys are enabled via pragmas for concurrent reads.
func NewStore(cfg Config) (*Store, error) {
	// Register sqlite-vec extension (must be done before opening database)
	sqlite_vec.Auto()

	dsn := cfg.Path + "?_foreign_keys=ON"

	// Open raw database connection with mattn/go-sqlite3 (has FTS5 support)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Wrap with GORM using the existing connection
	db, err := gorm.Open(sqlite.Dialector{
		Conn: sqlDB,
	}, &gorm.Config{
		Logger:      logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0) // SQLite connections are cheap, never expire

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	dims := cfg.VectorDims
	if dims <= 0 {
		dims = 768
	}

	if err := runMigrations(db, dims); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// WAL mode must be set outside the migration transaction
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	return &Store{DB: db, sqlDB: sqlDB}, nil
}

// GetRawDB returns the underlying *sql.DB for raw FTS5/vec0 queries.
func (s *Store) GetRawDB() *sql.DB {
	return s.sqlDB
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}
