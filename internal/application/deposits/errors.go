package deposits

import "errors"

var (
	ErrPortfolioNotFound     = errors.New("Portfolio not found")
	ErrPlanNotFound          = errors.New("Deposit plan not found")
	ErrDepositNotFound       = errors.New("No deposit found with reference code")
	ErrNoPortfoliosAvailable = errors.New("No portfolios available for allocation")
)
