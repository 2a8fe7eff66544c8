package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSettingsCreatesDefaults(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	settings, err := db.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings)
	require.True(t, settings.AuthEnabled)
	require.NotZero(t, settings.ID)

	// Second read returns the same row, not a new one
	again, err := db.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, settings.ID, again.ID)
}

func TestUpdateSettings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	settings, err := db.GetSettings(ctx)
	require.NoError(t, err)

	settings.AuthEnabled = false
	require.NoError(t, db.UpdateSettings(ctx, settings))

	reloaded, err := db.GetSettings(ctx)
	require.NoError(t, err)
	require.False(t, reloaded.AuthEnabled)
}
