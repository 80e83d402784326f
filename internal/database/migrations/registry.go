package migrations

import (
	"github.com/hanatv/hanatv/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns hanatv's migrations in order. The schema is small
// enough that, unlike a multi-source EPG aggregator, it needs exactly one
// version: every model AutoMigrates together and new columns AutoMigrate
// forward without a dedicated migration of their own.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
	}
}

func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "create channel, program, recorded_video, and recorded_program tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Channel{},
				&models.Program{},
				&models.RecordedVideo{},
				&models.RecordedProgram{},
			)
		},
	}
}
