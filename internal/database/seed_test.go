package database_test

import (
	"context"
	"testing"

	"supplylink/internal/database"
	"supplylink/internal/model"
	"supplylink/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed_IsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	first, err := database.Seed(ctx, db, "demo-password")
	require.NoError(t, err)
	assert.Equal(t, database.SeedResult{Users: 3, Categories: 4}, first)

	second, err := database.Seed(ctx, db, "demo-password")
	require.NoError(t, err)
	assert.Zero(t, second)

	var admin model.User
	require.NoError(t, db.First(&admin, "email = ?", "admin@supplylink.local").Error)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, model.UserStatusActive, admin.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("demo-password")))
}

func TestSeed_RequiresPassword(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := database.Seed(context.Background(), db, "")
	assert.Error(t, err)
}
