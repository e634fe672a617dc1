package models

import (
	"time"

	"gorm.io/datatypes"
)

type PullRequestReview struct {
	ReviewID    int64  `gorm:"column:review_id;primaryKey;autoIncrement:false"`
	PrID        int64  `gorm:"column:pr_id;not null;index"`
	Repo        string `gorm:"type:text;not null;index"`
	Username    string `gorm:"type:text"`
	State       string `gorm:"type:text;not null;index"`
	SubmittedAt *time.Time
	CommitID    string  `gorm:"type:text"`
	Body        *string `gorm:"type:text"`
	Data        datatypes.JSON
}

func (PullRequestReview) TableName() string {
	return "pull_request_reviews"
}
