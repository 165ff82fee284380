package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan types. Active plans are visited in ascending lexicographic order of this
// label, so "monthly" sorts before "one-time"; callers depending on plan priority
// depend on that ordering.
const (
	PlanTypeOneTime = "one-time"
	PlanTypeMonthly = "monthly"
)

// DepositPlan is a pre-declared allocation plan. IsActive only ever transitions
// true to false; one-time plans are deactivated by the allocation engine.
type DepositPlan struct {
	PlanID        uuid.UUID        `gorm:"column:plan_id;type:uuid;primaryKey" json:"plan_id"`
	Type          string           `gorm:"column:type;type:varchar(10);not null" json:"type"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ExecutionDate *time.Time       `gorm:"column:execution_date" json:"execution_date"`
	Allocations   []PlanAllocation `gorm:"foreignKey:PlanID" json:"allocations"`
	CreatedAt     time.Time        `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `gorm:"column:updatedAt" json:"updatedAt"`
}

func (DepositPlan) TableName() string {
	return "DepositPlans"
}

func (p *DepositPlan) BeforeCreate(tx *gorm.DB) error {
	if p.PlanID == uuid.Nil {
		p.PlanID = uuid.New()
	}
	return nil
}

// IsValidPlanType reports whether t is one of the supported plan types.
func IsValidPlanType(t string) bool {
	return t == PlanTypeOneTime || t == PlanTypeMonthly
}
