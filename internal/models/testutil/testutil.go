package testutil

import (
	"testing"
	"time"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenTestDB returns an in-memory sqlite DB with migrations applied.
func OpenTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(models.All...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	return db
}

// CloseDB closes the underlying sql.DB if available.
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// AssertCount asserts a count for the provided model.
func AssertCount(tb testing.TB, db *gorm.DB, model any, expected int64) {
	tb.Helper()

	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		tb.Fatalf("count: %v", err)
	}
	if count != expected {
		tb.Fatalf("expected %d records, got %d", expected, count)
	}
}

// Catalog is the reference data seeded for reconciliation tests.
type Catalog struct {
	Env      *models.Env
	Platform *models.Platform
	Os       *models.Os
	OsGroup  *models.OsGroup

	Component *models.Component
	Requester *models.User
	Staff     *models.User

	Passed   *models.Status
	Failed   *models.Status
	Error    *models.Status
	Blocked  *models.Status
	Skipped  *models.Status
	Canceled *models.Status
}

// SeedCatalog inserts a baseline reference catalog: the six statuses
// in priority order, one env/platform/os with aliases, a component
// and two users.
func SeedCatalog(tb testing.TB, db *gorm.DB) *Catalog {
	tb.Helper()

	c := &Catalog{
		Env:       &models.Env{Name: "Silicon", ShortName: "si"},
		OsGroup:   &models.OsGroup{Name: "Windows", Aliases: "win;win10"},
		Component: &models.Component{Name: "decode"},
		Requester: &models.User{Username: "reporter", Email: "reporter@example.com"},
		Staff:     &models.User{Username: "admin", Email: "admin@example.com", IsStaff: true},
		Canceled:  &models.Status{TestStatus: "Canceled", Priority: 10},
		Skipped:   &models.Status{TestStatus: "Skipped", Priority: 20},
		Blocked:   &models.Status{TestStatus: "Blocked", Priority: 30},
		Error:     &models.Status{TestStatus: "Error", Priority: 40},
		Failed:    &models.Status{TestStatus: "Failed", Priority: 50},
		Passed:    &models.Status{TestStatus: "Passed", Priority: 60},
	}

	for _, entity := range []interface{}{
		c.Env, c.OsGroup, c.Component, c.Requester, c.Staff,
		c.Canceled, c.Skipped, c.Blocked, c.Error, c.Failed, c.Passed,
	} {
		if err := db.Create(entity).Error; err != nil {
			tb.Fatalf("seed: %v", err)
		}
	}

	c.Platform = &models.Platform{Name: "Apollo_Lake", Aliases: "Apollo Lake;ApolloLake;"}
	if err := db.Create(c.Platform).Error; err != nil {
		tb.Fatalf("seed platform: %v", err)
	}

	c.Os = &models.Os{Name: "Windows 10 21H2", GroupID: &c.OsGroup.ID, Aliases: "win10-21h2"}
	if err := db.Create(c.Os).Error; err != nil {
		tb.Fatalf("seed os: %v", err)
	}

	return c
}

// SeedValidation inserts a Validation bound to the seeded catalog.
func SeedValidation(tb testing.TB, db *gorm.DB, c *Catalog, name string, date time.Time) *models.Validation {
	tb.Helper()

	v := &models.Validation{
		Name:       name,
		EnvID:      c.Env.ID,
		PlatformID: c.Platform.ID,
		OsID:       c.Os.ID,
		Date:       &date,
		OwnerID:    &c.Requester.ID,
	}
	if err := db.Create(v).Error; err != nil {
		tb.Fatalf("seed validation: %v", err)
	}

	return v
}
