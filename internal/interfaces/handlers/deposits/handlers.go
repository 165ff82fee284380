package deposits

import (
	"errors"
	"fmt"

	depositsvc "fundvault-backend/internal/application/deposits"
	"fundvault-backend/internal/domain"
	"fundvault-backend/internal/pkg/response"
	"fundvault-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *depositsvc.Service
}

// statusFor maps service errors to HTTP codes; anything unrecognized is a
// storage failure surfaced as 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, depositsvc.ErrPortfolioNotFound),
		errors.Is(err, depositsvc.ErrPlanNotFound),
		errors.Is(err, depositsvc.ErrDepositNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, depositsvc.ErrNoPortfoliosAvailable):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func serviceError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code == fiber.StatusInternalServerError {
		return response.Error(c, "Internal Server Error", code, nil)
	}
	return response.Error(c, err.Error(), code, nil)
}

// AllocateDeposits POST /api/v1/deposits/allocate
func (h *Handlers) AllocateDeposits(c *fiber.Ctx) error {
	var body struct {
		Deposits []depositsvc.DepositInput `json:"deposits"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "deposits are required", fiber.StatusBadRequest, nil)
	}
	if len(body.Deposits) == 0 {
		return response.Error(c, "deposits are required", fiber.StatusBadRequest, nil)
	}
	for _, d := range body.Deposits {
		if !validation.IsValidAmount(d.Amount) {
			return response.Error(c, "Deposit amounts must not be negative", fiber.StatusBadRequest, nil)
		}
	}

	allocation, err := h.Service.AllocateDeposits(c.Context(), body.Deposits)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Deposits allocated successfully", fiber.Map{"allocation": allocation}, nil)
}

// CreatePortfolio POST /api/v1/deposits/create-portfolio
func (h *Handlers) CreatePortfolio(c *fiber.Ctx) error {
	var body struct {
		Name    string   `json:"name"`
		Balance *float64 `json:"balance"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "name is required", fiber.StatusBadRequest, nil)
	}
	if !validation.IsValidPortfolioName(body.Name) {
		return response.Error(c, "name is required", fiber.StatusBadRequest, nil)
	}
	if body.Balance != nil && !validation.IsValidAmount(*body.Balance) {
		return response.Error(c, "balance must not be negative", fiber.StatusBadRequest, nil)
	}

	portfolio, err := h.Service.CreatePortfolio(c.Context(), body.Name, body.Balance)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Portfolio created successfully", fiber.Map{"portfolio": portfolio}, nil)
}

// GetPortfolios GET /api/v1/deposits/portfolios
func (h *Handlers) GetPortfolios(c *fiber.Ctx) error {
	portfolios, err := h.Service.GetPortfolios(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Portfolios retrieved successfully", fiber.Map{"portfolios": portfolios}, nil)
}

// CreateDepositPlan POST /api/v1/deposits/create-plan
func (h *Handlers) CreateDepositPlan(c *fiber.Ctx) error {
	var body struct {
		Type        string `json:"type"`
		Allocations []struct {
			PortfolioID string  `json:"portfolio_id"`
			Amount      float64 `json:"amount"`
		} `json:"allocations"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "type and allocations are required", fiber.StatusBadRequest, nil)
	}
	if !domain.IsValidPlanType(body.Type) {
		return response.Error(c, "type must be one-time or monthly", fiber.StatusBadRequest, nil)
	}
	if len(body.Allocations) == 0 {
		return response.Error(c, "type and allocations are required", fiber.StatusBadRequest, nil)
	}

	in := depositsvc.CreatePlanInput{Type: body.Type}
	for _, line := range body.Allocations {
		portfolioID, err := uuid.Parse(line.PortfolioID)
		if err != nil {
			return response.Error(c, "Invalid UUID format for portfolio_id", fiber.StatusBadRequest, nil)
		}
		if !validation.IsValidAmount(line.Amount) {
			return response.Error(c, "Allocation amounts must not be negative", fiber.StatusBadRequest, nil)
		}
		in.Allocations = append(in.Allocations, depositsvc.PlanLineInput{
			PortfolioID: portfolioID,
			Amount:      line.Amount,
		})
	}

	plan, err := h.Service.CreateDepositPlan(c.Context(), in)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Deposit plan created successfully", fiber.Map{"plan": plan}, nil)
}

// GetPlanHistory GET /api/v1/deposits/plan-history/:id
func (h *Handlers) GetPlanHistory(c *fiber.Ctx) error {
	planID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for plan id", fiber.StatusBadRequest, nil)
	}

	history, err := h.Service.GetPlanHistory(c.Context(), planID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Plan history retrieved successfully", fiber.Map{
		"plan":             history.Plan,
		"executionHistory": history.ExecutionHistory,
	}, nil)
}

// CreateDeposit POST /api/v1/deposits/create-deposit
func (h *Handlers) CreateDeposit(c *fiber.Ctx) error {
	var body struct {
		Amount        float64 `json:"amount"`
		ReferenceCode string  `json:"reference_code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "amount and reference_code are required", fiber.StatusBadRequest, nil)
	}
	if !validation.IsValidAmount(body.Amount) {
		return response.Error(c, "amount must not be negative", fiber.StatusBadRequest, nil)
	}
	if !validation.IsValidReferenceCode(body.ReferenceCode) {
		return response.Error(c, "amount and reference_code are required", fiber.StatusBadRequest, nil)
	}

	deposit, err := h.Service.CreateDeposit(c.Context(), body.Amount, body.ReferenceCode)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Deposit created successfully", fiber.Map{"deposit": deposit}, nil)
}

// GetActivePlans GET /api/v1/deposits/active-plans
func (h *Handlers) GetActivePlans(c *fiber.Ctx) error {
	plans, err := h.Service.GetActiveDepositPlans(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Active deposit plans retrieved successfully", fiber.Map{"plans": plans}, nil)
}

// GetDepositPlans GET /api/v1/deposits/plans
func (h *Handlers) GetDepositPlans(c *fiber.Ctx) error {
	plans, err := h.Service.GetDepositPlans(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Deposit plans retrieved successfully", fiber.Map{"plans": plans}, nil)
}

// GetDeposits GET /api/v1/deposits
func (h *Handlers) GetDeposits(c *fiber.Ctx) error {
	all, err := h.Service.GetDeposits(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Deposits retrieved successfully", fiber.Map{"deposits": all}, nil)
}

// RollbackDeposit POST /api/v1/deposits/rollback/:referenceCode
func (h *Handlers) RollbackDeposit(c *fiber.Ctx) error {
	referenceCode := c.Params("referenceCode")
	if !validation.IsValidReferenceCode(referenceCode) {
		return response.Error(c, "Invalid reference code", fiber.StatusBadRequest, nil)
	}

	if err := h.Service.RollbackLastDeposit(c.Context(), referenceCode); err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, fmt.Sprintf("Successfully rolled back deposit with reference code %s", referenceCode), fiber.Map{}, nil)
}
