package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Connect initializes the database connection.
// SQLite is the default; postgres is used in production deployments.
func Connect(driver, dsn string, log logger.Interface) error {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return err
	}

	cfg := &gorm.Config{TranslateError: true}
	if log != nil {
		cfg.Logger = log
	}

	DB, err = gorm.Open(dialector, cfg)
	if err != nil {
		return err
	}
	return nil
}

// Dialector returns the gorm dialector for the named driver.
// SQLite connections get foreign key enforcement switched on.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverSQLite, "":
		if !strings.Contains(dsn, "_foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_foreign_keys=on"
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}
