package database

import (
	"context"
	"testing"

	"funnelbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func TestUpsertUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	err := db.UpsertUser(ctx, 12345, models.Identity{
		Username:  "testuser",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)

	found, err := db.GetUserByTelegramID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "testuser", found.Username)
	assert.Equal(t, "Test", found.FirstName)
	assert.False(t, found.IsSubscribed)
	assert.False(t, found.HasReceivedContent)
}

func TestUpsertUser_PreservesFunnelFlags(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, 12345, models.Identity{Username: "old", FirstName: "Old"}))
	require.NoError(t, db.SetSubscribed(ctx, 12345, true))
	require.NoError(t, db.SetContentReceived(ctx, 12345))

	// Повторный /start обновляет только отображаемые поля
	require.NoError(t, db.UpsertUser(ctx, 12345, models.Identity{Username: "new", FirstName: "New"}))

	found, err := db.GetUserByTelegramID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "new", found.Username)
	assert.True(t, found.IsSubscribed)
	assert.True(t, found.HasReceivedContent)
}

func TestGetUserByTelegramID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetUserByTelegramID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetSubscribed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, 111, models.Identity{FirstName: "Sub"}))
	require.NoError(t, db.SetSubscribed(ctx, 111, true))

	found, err := db.GetUserByTelegramID(ctx, 111)
	require.NoError(t, err)
	assert.True(t, found.IsSubscribed)

	require.NoError(t, db.SetSubscribed(ctx, 111, false))
	found, err = db.GetUserByTelegramID(ctx, 111)
	require.NoError(t, err)
	assert.False(t, found.IsSubscribed)
}

func TestListUserIDs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	ids, err := db.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, db.UpsertUser(ctx, 1, models.Identity{FirstName: "A"}))
	require.NoError(t, db.UpsertUser(ctx, 2, models.Identity{FirstName: "B"}))
	require.NoError(t, db.UpsertUser(ctx, 3, models.Identity{FirstName: "C"}))

	ids, err = db.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, 10, models.Identity{FirstName: "First"}))
	require.NoError(t, db.UpsertUser(ctx, 20, models.Identity{FirstName: "Second"}))

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
