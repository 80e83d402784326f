package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/hanatv/hanatv/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Channel{},
		&models.Program{},
		&models.RecordedVideo{},
		&models.RecordedProgram{},
	))

	return db
}
