package database

import (
	"context"
	"testing"

	"github.com/hanatv/hanatv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewOpensInMemoryDatabase(t *testing.T) {
	cfg := config.DatabaseConfig{DSN: ":memory:", LogLevel: "warn"}

	db, err := New(cfg, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := New(config.DatabaseConfig{DSN: ":memory:", LogLevel: "silent"}, nil, nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(context.Background()))

	for _, table := range []string{"channels", "programs", "recorded_videos", "recorded_programs", "schema_migrations"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s to exist", table)
	}

	// Migrate is idempotent: re-running must not fail or reapply.
	require.NoError(t, db.Migrate(context.Background()))
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db, err := New(config.DatabaseConfig{DSN: ":memory:", LogLevel: "silent"}, nil, nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(context.Background()))

	sentinel := assert.AnError
	err = db.Transaction(context.Background(), func(tx *gorm.DB) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
