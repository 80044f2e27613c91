package db

import (
	"sync"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/pkg/env"
	"github.com/collate-cloud/collate/pkg/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	conn   *gorm.DB
	connMu sync.Mutex
)

// Connection returns the shared gorm connection, opening it on
// first use with the configured database type and DSN.
func Connection() *gorm.DB {
	connMu.Lock()
	defer connMu.Unlock()

	if conn == nil {
		conn = open()
	}

	return conn
}

func open() *gorm.DB {
	var (
		gdb *gorm.DB
		err error
	)

	switch env.Variables().DatabaseType {
	case "postgres":
		gdb, err = gorm.Open(
			postgres.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	case "sqlite":
		fallthrough
	default:
		dsn := env.Variables().DatabaseDSN
		if dsn == "" {
			dsn = "file:collate.db?cache=shared"
		}
		gdb, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	return gdb
}

// Migrate applies the schema of every registered model.
func Migrate() error {
	return Connection().AutoMigrate(models.All...)
}
