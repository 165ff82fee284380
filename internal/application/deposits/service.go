package deposits

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"fundvault-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Cache keys for derived reads. Every mutating operation deletes the key it
// makes stale after its transaction commits; between commit and delete a
// concurrent reader may still observe the old entry.
const (
	cacheKeyPortfolios  = "portfolios"
	cacheKeyActivePlans = "activeDepositPlans"

	portfoliosTTL  = time.Hour
	activePlansTTL = 30 * time.Minute
)

// Cache abstracts the read-aside cache (Redis in production, see
// infrastructure/cache). Implementations must treat failures as advisory.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// AuditLog abstracts the append-only activity recorder.
type AuditLog interface {
	Append(ctx context.Context, activity string, detail interface{}) error
	QueryByPattern(ctx context.Context, pattern string) ([]domain.ActivityLog, error)
}

// Service implements deposit allocation over portfolios and plans. All
// mutating operations run inside exactly one GORM transaction; business
// errors returned from the closure roll the whole unit back.
type Service struct {
	DB    *gorm.DB
	Cache Cache
	Audit AuditLog
}

// DepositInput is one deposit amount to place.
type DepositInput struct {
	Amount float64 `json:"amount"`
}

// PlanLineInput is one allocation line of a plan being created.
type PlanLineInput struct {
	PortfolioID uuid.UUID `json:"portfolio_id"`
	Amount      float64   `json:"amount"`
}

// CreatePlanInput carries a new plan's type and ordered allocation lines.
type CreatePlanInput struct {
	Type        string          `json:"type"`
	Allocations []PlanLineInput `json:"allocations"`
}

// PlanHistory pairs a plan with the audit entries referencing it.
type PlanHistory struct {
	Plan             domain.DepositPlan   `json:"plan"`
	ExecutionHistory []domain.ActivityLog `json:"executionHistory"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// activePlanQuery loads active plans in waterfall order: ascending string sort
// on type, lines in their persisted position order, line portfolios eager.
func activePlanQuery(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Allocations.Portfolio").
		Order("type ASC")
}

// AllocateDeposits distributes the deposits' total across active plans in
// waterfall order and returns the applied amounts keyed by portfolio name.
// Each line receives min(line amount, remaining). One-time plans are
// deactivated whenever visited, funded or not. Funds left after the last plan
// go to an arbitrary portfolio; with no portfolio at all the whole operation
// aborts with ErrNoPortfoliosAvailable and nothing is persisted.
func (s *Service) AllocateDeposits(ctx context.Context, deposits []DepositInput) (map[string]float64, error) {
	allocation := make(map[string]float64)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		remaining := 0.0
		for _, d := range deposits {
			remaining = round2(remaining + d.Amount)
		}

		var plans []domain.DepositPlan
		if err := activePlanQuery(tx).Find(&plans).Error; err != nil {
			return err
		}

		for i := range plans {
			plan := &plans[i]
			for _, line := range plan.Allocations {
				amt := math.Min(line.Amount, remaining)
				if amt > 0 {
					// Re-read the row: the same portfolio may appear on
					// several lines within one allocate call.
					var portfolio domain.Portfolio
					if err := tx.First(&portfolio, "portfolio_id = ?", line.PortfolioID).Error; err != nil {
						return err
					}
					allocation[portfolio.Name] = round2(allocation[portfolio.Name] + amt)
					remaining = round2(remaining - amt)

					portfolio.Balance = round2(portfolio.Balance + amt)
					if err := tx.Save(&portfolio).Error; err != nil {
						return err
					}
				}
			}

			// One-time plans burn out on every visit, even when remaining was
			// already zero before their lines were looked at.
			if plan.Type == domain.PlanTypeOneTime {
				if err := tx.Model(&domain.DepositPlan{}).
					Where("plan_id = ?", plan.PlanID).
					Update("is_active", false).Error; err != nil {
					return err
				}
			}

			if remaining <= 0 {
				break
			}
		}

		if remaining > 0 {
			var fallback domain.Portfolio
			if err := tx.Take(&fallback).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ErrNoPortfoliosAvailable
				}
				return err
			}
			allocation[fallback.Name] = round2(allocation[fallback.Name] + remaining)
			fallback.Balance = round2(fallback.Balance + remaining)
			if err := tx.Save(&fallback).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cacheKeyPortfolios)
	return allocation, nil
}

// CreateDepositPlan creates an active plan with its allocation lines. Every
// referenced portfolio must exist; a missing one aborts the whole creation.
func (s *Service) CreateDepositPlan(ctx context.Context, in CreatePlanInput) (*domain.DepositPlan, error) {
	plan := domain.DepositPlan{
		Type:     in.Type,
		IsActive: true,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&plan).Error; err != nil {
			return err
		}

		for i, line := range in.Allocations {
			var portfolio domain.Portfolio
			if err := tx.First(&portfolio, "portfolio_id = ?", line.PortfolioID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ErrPortfolioNotFound
				}
				return err
			}

			alloc := domain.PlanAllocation{
				PlanID:      plan.PlanID,
				PortfolioID: portfolio.PortfolioID,
				Amount:      round2(line.Amount),
				Position:    i,
			}
			if err := tx.Create(&alloc).Error; err != nil {
				return err
			}
			alloc.Portfolio = &portfolio
			plan.Allocations = append(plan.Allocations, alloc)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cacheKeyActivePlans)
	return &plan, nil
}

// GetActiveDepositPlans serves active plans read-aside: cache hit returns
// verbatim; a miss queries the store in waterfall order and repopulates the
// key with a 30 minute TTL.
func (s *Service) GetActiveDepositPlans(ctx context.Context) ([]domain.DepositPlan, error) {
	var plans []domain.DepositPlan
	if s.Cache.Get(ctx, cacheKeyActivePlans, &plans) {
		return plans, nil
	}

	if err := activePlanQuery(s.DB.WithContext(ctx)).Find(&plans).Error; err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, cacheKeyActivePlans, plans, activePlansTTL)
	return plans, nil
}

// CreateDeposit persists a deposit with a server-assigned timestamp and emits
// a best-effort audit entry. Creating the record does not allocate funds and
// does not link any plan allocations to it.
func (s *Service) CreateDeposit(ctx context.Context, amount float64, referenceCode string) (*domain.Deposit, error) {
	deposit := domain.Deposit{
		Amount:        round2(amount),
		ReferenceCode: referenceCode,
		Timestamp:     time.Now(),
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&deposit).Error
	})
	if err != nil {
		return nil, err
	}

	b, _ := json.Marshal(deposit)
	if err := s.Audit.Append(ctx, fmt.Sprintf("Deposit created: %s", b), &deposit); err != nil {
		log.Warn().Err(err).Str("reference_code", referenceCode).Msg("Failed to log deposit activity")
	}

	return &deposit, nil
}

// CreatePortfolio upserts by name. An existing portfolio keeps its identity
// and gets its balance overwritten with the supplied value; a nil balance
// leaves the current one in place.
func (s *Service) CreatePortfolio(ctx context.Context, name string, balance *float64) (*domain.Portfolio, error) {
	var portfolio domain.Portfolio

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("name = ?", name).First(&portfolio).Error
		if err == nil {
			if balance != nil {
				portfolio.Balance = round2(*balance)
			}
			return tx.Save(&portfolio).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		portfolio = domain.Portfolio{Name: name}
		if balance != nil {
			portfolio.Balance = round2(*balance)
		}
		return tx.Create(&portfolio).Error
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cacheKeyPortfolios)
	return &portfolio, nil
}

// GetPortfolios serves all portfolios read-aside with a 1 hour TTL.
func (s *Service) GetPortfolios(ctx context.Context) ([]domain.Portfolio, error) {
	var portfolios []domain.Portfolio
	if s.Cache.Get(ctx, cacheKeyPortfolios, &portfolios) {
		return portfolios, nil
	}

	if err := s.DB.WithContext(ctx).Find(&portfolios).Error; err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, cacheKeyPortfolios, portfolios, portfoliosTTL)
	return portfolios, nil
}

// GetDepositPlans returns all plans, active or not, with lines and portfolios.
func (s *Service) GetDepositPlans(ctx context.Context) ([]domain.DepositPlan, error) {
	var plans []domain.DepositPlan
	err := s.DB.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Allocations.Portfolio").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// GetDeposits returns all deposit records.
func (s *Service) GetDeposits(ctx context.Context) ([]domain.Deposit, error) {
	var depositsList []domain.Deposit
	if err := s.DB.WithContext(ctx).Find(&depositsList).Error; err != nil {
		return nil, err
	}
	return depositsList, nil
}

// GetPlanHistory returns the plan together with audit entries whose text
// mentions it, newest first.
func (s *Service) GetPlanHistory(ctx context.Context, planID uuid.UUID) (*PlanHistory, error) {
	var plan domain.DepositPlan
	err := s.DB.WithContext(ctx).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Allocations.Portfolio").
		First(&plan, "plan_id = ?", planID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	activities, err := s.Audit.QueryByPattern(ctx, fmt.Sprintf("Deposit plan %s", planID))
	if err != nil {
		return nil, err
	}

	return &PlanHistory{Plan: plan, ExecutionHistory: activities}, nil
}

// RollbackLastDeposit reverses the most recent deposit carrying referenceCode:
// every plan allocation linked to it has its amount subtracted from its
// portfolio, the linked allocation rows and the deposit row are removed, all
// in one transaction. Allocations never linked to the deposit are untouched.
func (s *Service) RollbackLastDeposit(ctx context.Context, referenceCode string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deposit domain.Deposit
		err := tx.Preload("Allocations").
			Where("reference_code = ?", referenceCode).
			Order("timestamp DESC").
			First(&deposit).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrDepositNotFound
			}
			return err
		}

		for _, alloc := range deposit.Allocations {
			var portfolio domain.Portfolio
			if err := tx.First(&portfolio, "portfolio_id = ?", alloc.PortfolioID).Error; err != nil {
				return err
			}
			portfolio.Balance = round2(portfolio.Balance - alloc.Amount)
			if err := tx.Save(&portfolio).Error; err != nil {
				return err
			}
		}

		if len(deposit.Allocations) > 0 {
			if err := tx.Where("deposit_id = ?", deposit.DepositID).
				Delete(&domain.PlanAllocation{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&deposit).Error
	})
	if err != nil {
		return err
	}

	s.Cache.Delete(ctx, cacheKeyPortfolios)
	return nil
}
