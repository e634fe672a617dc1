package models

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

type PullRequest struct {
	PrID                   int64   `gorm:"column:pr_id;primaryKey;autoIncrement:false"`
	RepoID                 int64   `gorm:"not null"`
	Repo                   string  `gorm:"type:text;not null;index:idx_pull_requests_repo_updated_at,priority:1"`
	Number                 int     `gorm:"not null"`
	Username               string  `gorm:"type:text"`
	Title                  string  `gorm:"type:text;not null"`
	Body                   *string `gorm:"type:text"`
	State                  string  `gorm:"type:text;not null"`
	Draft                  bool    `gorm:"not null;default:false"`
	Merged                 bool    `gorm:"not null;default:false"`
	BaseRef                string  `gorm:"type:text"`
	HeadRef                string  `gorm:"type:text"`
	Labels                 datatypes.JSONSlice[string]
	RequestedReviewers     datatypes.JSONSlice[string]
	RequestedTeams         datatypes.JSONSlice[string]
	Additions              int `gorm:"not null;default:0"`
	Deletions              int `gorm:"not null;default:0"`
	ChangedFiles           int `gorm:"not null;default:0"`
	MergedAt               *time.Time
	ClosedAt               *time.Time
	CreatedAt              time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt              time.Time `gorm:"not null;autoUpdateTime:false;index:idx_pull_requests_repo_updated_at,priority:2"`
	LastReadyForReviewAt   *time.Time
	LastConvertedToDraftAt *time.Time
	FirstReviewedAt        *time.Time
	Data                   datatypes.JSON
}

func (PullRequest) TableName() string {
	return "pull_requests"
}

func (p PullRequest) RecordID() string {
	return strconv.FormatInt(p.PrID, 10)
}

func (p PullRequest) LastModified() time.Time {
	return p.UpdatedAt
}
