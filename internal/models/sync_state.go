package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState records the outcome of the latest pass for one partition.
// It is informational only: watermarks are always recomputed from the
// record tables.
type SyncState struct {
	Scope         string `gorm:"primaryKey;type:text"`
	Family        string `gorm:"type:text;index"`
	Partition     string `gorm:"type:text"`
	WatermarkTS   *time.Time
	LastSuccessAt *time.Time
	LastAttemptAt *time.Time
	LastError     *string `gorm:"type:text"`
	StatsJSON     datatypes.JSON
}

func (SyncState) TableName() string {
	return "sync_state"
}
