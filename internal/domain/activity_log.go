package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLog is an append-only free-text audit entry. Activity carries the
// human-readable message history lookups pattern-match against; Detail keeps a
// JSON snapshot of the record the entry describes.
type ActivityLog struct {
	LogID     uuid.UUID      `gorm:"column:log_id;type:uuid;primaryKey" json:"log_id"`
	Activity  string         `gorm:"column:activity;type:text;not null" json:"activity"`
	Detail    datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail"`
	Timestamp time.Time      `gorm:"column:timestamp;not null" json:"timestamp"`
}

func (ActivityLog) TableName() string {
	return "ActivityLogs"
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.LogID == uuid.Nil {
		l.LogID = uuid.New()
	}
	return nil
}
