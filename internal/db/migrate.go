package db

import (
	"github.com/ilaif/athena-cycle/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.PullRequest{},
		&models.PullRequestReview{},
		&models.Issue{},
		&models.SyncState{},
	)
}
