package sqlstore

import "time"

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds SQL connection settings
type Config struct {
	// Driver is "postgres" or "sqlite"
	Driver string

	// DSN is the driver-specific data source name
	DSN string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// SlowThreshold is the query duration above which gorm logs a warning
	SlowThreshold time.Duration
}

// DefaultConfig returns a local SQLite file configuration
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "file:ghozi.db?_busy_timeout=5000",
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   time.Second,
	}
}
