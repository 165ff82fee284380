package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deposit is an incoming funds record. ReferenceCode is a business correlation
// key and is not unique; rollback targets the most recent deposit per code.
type Deposit struct {
	DepositID     uuid.UUID        `gorm:"column:deposit_id;type:uuid;primaryKey" json:"deposit_id"`
	Amount        float64          `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	ReferenceCode string           `gorm:"column:reference_code;type:varchar(60);not null;index" json:"reference_code"`
	Timestamp     time.Time        `gorm:"column:timestamp;not null" json:"timestamp"`
	Allocations   []PlanAllocation `gorm:"foreignKey:DepositID" json:"allocations,omitempty"`
}

func (Deposit) TableName() string {
	return "Deposits"
}

func (d *Deposit) BeforeCreate(tx *gorm.DB) error {
	if d.DepositID == uuid.Nil {
		d.DepositID = uuid.New()
	}
	return nil
}
