package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanAllocation is one line of a deposit plan: a target amount for a portfolio.
// Position preserves the line order the plan was created with; the waterfall
// visits lines in that order. DepositID is set only when an allocation is
// explicitly linked to a deposit, and rollback reverses exactly those lines.
type PlanAllocation struct {
	AllocationID uuid.UUID  `gorm:"column:allocation_id;type:uuid;primaryKey" json:"allocation_id"`
	PlanID       uuid.UUID  `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	PortfolioID  uuid.UUID  `gorm:"column:portfolio_id;type:uuid;not null" json:"portfolio_id"`
	DepositID    *uuid.UUID `gorm:"column:deposit_id;type:uuid" json:"deposit_id"`
	Amount       float64    `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	Position     int        `gorm:"column:position;not null;default:0" json:"position"`
	Portfolio    *Portfolio `gorm:"foreignKey:PortfolioID" json:"portfolio,omitempty"`
	CreatedAt    time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (PlanAllocation) TableName() string {
	return "PlanAllocations"
}

func (a *PlanAllocation) BeforeCreate(tx *gorm.DB) error {
	if a.AllocationID == uuid.Nil {
		a.AllocationID = uuid.New()
	}
	return nil
}
