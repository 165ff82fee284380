package audit

import (
	"context"
	"encoding/json"
	"time"

	"fundvault-backend/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends and queries free-text activity entries. It writes through
// its own DB handle, never a caller's transaction, so a failed append cannot
// roll back the unit of work it was emitted from.
type Recorder struct {
	DB *gorm.DB
}

// Append stores an activity entry with a server-assigned timestamp. detail,
// when non-nil, is kept as a JSON snapshot alongside the message.
func (r *Recorder) Append(ctx context.Context, activity string, detail interface{}) error {
	entry := domain.ActivityLog{
		Activity:  activity,
		Timestamp: time.Now(),
	}
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		entry.Detail = datatypes.JSON(b)
	}
	return r.DB.WithContext(ctx).Create(&entry).Error
}

// QueryByPattern returns entries whose activity text contains pattern,
// newest first.
func (r *Recorder) QueryByPattern(ctx context.Context, pattern string) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	err := r.DB.WithContext(ctx).
		Where("activity LIKE ?", "%"+pattern+"%").
		Order("timestamp DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
