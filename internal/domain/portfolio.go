package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Portfolio is a named bucket of funds. Name is the business key used by the
// allocation result map; balance is a running total maintained by the engine.
type Portfolio struct {
	PortfolioID uuid.UUID `gorm:"column:portfolio_id;type:uuid;primaryKey" json:"portfolio_id"`
	Name        string    `gorm:"column:name;type:varchar(120);not null;uniqueIndex" json:"name"`
	Balance     float64   `gorm:"column:balance;type:decimal(12,2);not null;default:0" json:"balance"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Portfolio) TableName() string {
	return "Portfolios"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (p *Portfolio) BeforeCreate(tx *gorm.DB) error {
	if p.PortfolioID == uuid.Nil {
		p.PortfolioID = uuid.New()
	}
	return nil
}
