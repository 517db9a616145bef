// Package testutil provides SQLite-backed databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"supplylink/internal/database"
	"supplylink/internal/model"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database in a temp file. One open connection
// serializes concurrent transactions the way row locks would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "supplylink.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), database.Config())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewRedis starts an in-memory Redis and returns a client for it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *rd.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

var seq atomic.Int64

// CreateUser inserts an ACTIVE user with the given role and unique email and cnpj.
func CreateUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()
	n := seq.Add(1)
	user := &model.User{
		Name:        fmt.Sprintf("%s user %d", role, n),
		Email:       fmt.Sprintf("user%d@example.com", n),
		Password:    "not-a-real-hash",
		Role:        role,
		Status:      model.UserStatusActive,
		CompanyName: fmt.Sprintf("Company %d", n),
		CNPJ:        fmt.Sprintf("%014d", n),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDemand inserts an OPEN demand owned by factory.
func CreateDemand(t *testing.T, db *gorm.DB, factory *model.User) *model.Demand {
	t.Helper()
	demand := &model.Demand{
		FactoryID:   factory.ID,
		ProductName: "Steel sheet",
		Quantity:    500,
		Unit:        "kg",
		NeededBy:    time.Now().UTC().AddDate(0, 1, 0).Truncate(24 * time.Hour),
		Status:      model.DemandOpen,
	}
	require.NoError(t, db.Create(demand).Error)
	return demand
}
