package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var instance *gorm.DB

// Init opens the local cache. driver is "sqlite" (dsn is a file path) or
// "mysql" (dsn is a go-sql-driver DSN) for consoles sharing one cache.
func Init(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("mkdir cache dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", driver)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&Token{}, &CachedTracker{}); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	instance = gdb
	return gdb, nil
}

func Get() *gorm.DB { return instance }

// Set replaces the shared handle; tests use it with in-memory databases.
func Set(gdb *gorm.DB) { instance = gdb }
