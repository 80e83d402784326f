package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllMigrationsCreatesHanatvSchema(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, nil)
	m.RegisterAll(AllMigrations())

	require.NoError(t, m.Up(context.Background()))

	for _, table := range []string{"channels", "programs", "recorded_videos", "recorded_programs"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s to exist", table)
	}
}

func TestMigratorStatusReflectsApplication(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := NewMigrator(db, nil)
	m.RegisterAll(AllMigrations())

	before, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, before, len(AllMigrations()))
	for _, s := range before {
		assert.False(t, s.Applied)
	}

	require.NoError(t, m.Up(ctx))

	after, err := m.Status(ctx)
	require.NoError(t, err)
	for _, s := range after {
		assert.True(t, s.Applied)
	}
}
