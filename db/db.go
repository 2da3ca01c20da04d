package db

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

func NewDB(uri string, logDBQueries bool) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if logDBQueries {
		gormConfig.Logger = gorm_logger.Default.LogMode(gorm_logger.Info)
	}

	// WAL mode plus a busy timeout avoids SQLITE_BUSY errors when the
	// background writer and request handlers touch the database together.
	if !strings.Contains(uri, "?") {
		uri = uri + "?"
	}
	uri = uri + "&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

	gormDB, err := gorm.Open(sqlite.Open(uri), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := gormDB.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	// SQLite only supports a single writer
	sqlDB.SetMaxOpenConns(1)

	return gormDB, nil
}

func Stop(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
