package database

import (
	"path/filepath"
	"testing"

	"github.com/mikepea/foodgram/pkg/foodgram/models"
)

func TestDialectorUnknownDriver(t *testing.T) {
	if _, err := Dialector("oracle", "dsn"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestDialectorNames(t *testing.T) {
	d, err := Dialector(DriverSQLite, "foodgram.db")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.Name() != "sqlite" {
		t.Errorf("Expected sqlite dialector, got %s", d.Name())
	}

	d, err = Dialector(DriverPostgres, "host=localhost user=foodgram dbname=foodgram")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.Name() != "postgres" {
		t.Errorf("Expected postgres dialector, got %s", d.Name())
	}
}

func TestConnectSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodgram.db")
	if err := Connect(DriverSQLite, path, nil); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := models.AutoMigrate(GetDB()); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	var fk int
	GetDB().Raw("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Errorf("Expected foreign keys to be enabled, got %d", fk)
	}

	sqlDB, _ := GetDB().DB()
	sqlDB.Close()
}
