package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Issue is a Jira issue row. Updated is the remote last-modified time and
// drives the per-project watermark.
type Issue struct {
	ID             string  `gorm:"primaryKey;type:text"`
	Key            string  `gorm:"type:text;not null;index"`
	IssueType      string  `gorm:"type:text"`
	ProjectKey     string  `gorm:"type:text;not null;index:idx_jira_issues_project_updated,priority:1"`
	Status         string  `gorm:"type:text"`
	Resolution     *string `gorm:"type:text"`
	ResolutionDate *time.Time
	Summary        string `gorm:"type:text"`
	Created        time.Time
	Updated        time.Time `gorm:"index:idx_jira_issues_project_updated,priority:2"`
	Priority       *string   `gorm:"type:text"`
	Labels         datatypes.JSONSlice[string]
	AssigneeEmail  *string          `gorm:"type:text"`
	ReporterEmail  *string          `gorm:"type:text"`
	SprintName     *string          `gorm:"type:text"`
	StoryPoints    *decimal.Decimal `gorm:"type:numeric"`
	Data           datatypes.JSON
}

func (Issue) TableName() string {
	return "jira_issues"
}

func (i Issue) RecordID() string {
	return i.ID
}

func (i Issue) LastModified() time.Time {
	return i.Updated
}
