package deposits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"fundvault-backend/internal/application/audit"
	depositsvc "fundvault-backend/internal/application/deposits"
	"fundvault-backend/internal/domain"
	"fundvault-backend/internal/infrastructure/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDepositsTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Portfolio{}, &domain.DepositPlan{}, &domain.PlanAllocation{},
		&domain.Deposit{}, &domain.ActivityLog{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	h := &Handlers{Service: &depositsvc.Service{
		DB:    db,
		Cache: &cache.Client{Rdb: rdb},
		Audit: &audit.Recorder{DB: db},
	}}

	app := fiber.New()
	g := app.Group("/api/v1/deposits")
	g.Post("/allocate", h.AllocateDeposits)
	g.Post("/create-portfolio", h.CreatePortfolio)
	g.Get("/portfolios", h.GetPortfolios)
	g.Post("/create-plan", h.CreateDepositPlan)
	g.Get("/plan-history/:id", h.GetPlanHistory)
	g.Post("/create-deposit", h.CreateDeposit)
	g.Get("/active-plans", h.GetActivePlans)
	g.Get("/plans", h.GetDepositPlans)
	g.Post("/rollback/:referenceCode", h.RollbackDeposit)
	g.Get("/", h.GetDeposits)
	return app, db
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) (map[string]interface{}, int) {
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out, resp.StatusCode
}

func getJSON(t *testing.T, app *fiber.App, path string) (map[string]interface{}, int) {
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out, resp.StatusCode
}

func TestAllocate_MissingDeposits(t *testing.T) {
	app, _ := setupDepositsTest(t)
	out, code := postJSON(t, app, "/api/v1/deposits/allocate", map[string]interface{}{})
	assert.Equal(t, 400, code)
	assert.Equal(t, "error", out["status"])
}

func TestAllocate_NegativeAmount(t *testing.T) {
	app, _ := setupDepositsTest(t)
	_, code := postJSON(t, app, "/api/v1/deposits/allocate", map[string]interface{}{
		"deposits": []map[string]interface{}{{"amount": -5}},
	})
	assert.Equal(t, 400, code)
}

func TestAllocate_NoPortfolios(t *testing.T) {
	app, _ := setupDepositsTest(t)
	out, code := postJSON(t, app, "/api/v1/deposits/allocate", map[string]interface{}{
		"deposits": []map[string]interface{}{{"amount": 50}},
	})
	assert.Equal(t, 400, code)
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "No portfolios available for allocation", errObj["message"])
}

func TestCreatePortfolioAndList(t *testing.T) {
	app, _ := setupDepositsTest(t)

	out, code := postJSON(t, app, "/api/v1/deposits/create-portfolio", map[string]interface{}{
		"name": "HighRisk", "balance": 0,
	})
	require.Equal(t, 201, code)
	assert.Equal(t, "success", out["status"])

	out, code = getJSON(t, app, "/api/v1/deposits/portfolios")
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	portfolios := data["portfolios"].([]interface{})
	require.Len(t, portfolios, 1)
	assert.Equal(t, "HighRisk", portfolios[0].(map[string]interface{})["name"])
}

func TestCreatePlan_Validation(t *testing.T) {
	app, _ := setupDepositsTest(t)

	_, code := postJSON(t, app, "/api/v1/deposits/create-plan", map[string]interface{}{
		"type": "yearly",
		"allocations": []map[string]interface{}{
			{"portfolio_id": uuid.New().String(), "amount": 10},
		},
	})
	assert.Equal(t, 400, code)

	_, code = postJSON(t, app, "/api/v1/deposits/create-plan", map[string]interface{}{
		"type": "one-time",
		"allocations": []map[string]interface{}{
			{"portfolio_id": "not-a-uuid", "amount": 10},
		},
	})
	assert.Equal(t, 400, code)
}

func TestCreatePlan_UnknownPortfolio(t *testing.T) {
	app, _ := setupDepositsTest(t)
	out, code := postJSON(t, app, "/api/v1/deposits/create-plan", map[string]interface{}{
		"type": "one-time",
		"allocations": []map[string]interface{}{
			{"portfolio_id": uuid.New().String(), "amount": 10},
		},
	})
	assert.Equal(t, 404, code)
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "Portfolio not found", errObj["message"])
}

func TestFullAllocationFlow(t *testing.T) {
	app, db := setupDepositsTest(t)

	highRisk := domain.Portfolio{Name: "HighRisk"}
	retirement := domain.Portfolio{Name: "Retirement"}
	require.NoError(t, db.Create(&highRisk).Error)
	require.NoError(t, db.Create(&retirement).Error)

	_, code := postJSON(t, app, "/api/v1/deposits/create-plan", map[string]interface{}{
		"type": "one-time",
		"allocations": []map[string]interface{}{
			{"portfolio_id": highRisk.PortfolioID.String(), "amount": 10000},
			{"portfolio_id": retirement.PortfolioID.String(), "amount": 500},
		},
	})
	require.Equal(t, 201, code)
	_, code = postJSON(t, app, "/api/v1/deposits/create-plan", map[string]interface{}{
		"type": "monthly",
		"allocations": []map[string]interface{}{
			{"portfolio_id": highRisk.PortfolioID.String(), "amount": 0},
			{"portfolio_id": retirement.PortfolioID.String(), "amount": 100},
		},
	})
	require.Equal(t, 201, code)

	out, code := postJSON(t, app, "/api/v1/deposits/allocate", map[string]interface{}{
		"deposits": []map[string]interface{}{{"amount": 10500}, {"amount": 100}},
	})
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	allocation := data["allocation"].(map[string]interface{})
	assert.Equal(t, 10000.0, allocation["HighRisk"])
	assert.Equal(t, 600.0, allocation["Retirement"])

	// The one-time plan is spent; only the monthly plan stays active.
	out, code = getJSON(t, app, "/api/v1/deposits/active-plans")
	require.Equal(t, 200, code)
	plans := out["data"].(map[string]interface{})["plans"].([]interface{})
	require.Len(t, plans, 1)
	assert.Equal(t, "monthly", plans[0].(map[string]interface{})["type"])
}

func TestCreateDepositAndListDeposits(t *testing.T) {
	app, _ := setupDepositsTest(t)

	out, code := postJSON(t, app, "/api/v1/deposits/create-deposit", map[string]interface{}{
		"amount": 150.5, "reference_code": "DEP-1",
	})
	require.Equal(t, 201, code)
	deposit := out["data"].(map[string]interface{})["deposit"].(map[string]interface{})
	assert.Equal(t, "DEP-1", deposit["reference_code"])

	out, code = getJSON(t, app, "/api/v1/deposits/")
	require.Equal(t, 200, code)
	all := out["data"].(map[string]interface{})["deposits"].([]interface{})
	assert.Len(t, all, 1)
}

func TestCreateDeposit_MissingReferenceCode(t *testing.T) {
	app, _ := setupDepositsTest(t)
	_, code := postJSON(t, app, "/api/v1/deposits/create-deposit", map[string]interface{}{
		"amount": 150.5,
	})
	assert.Equal(t, 400, code)
}

func TestPlanHistory_Errors(t *testing.T) {
	app, _ := setupDepositsTest(t)

	_, code := getJSON(t, app, "/api/v1/deposits/plan-history/not-a-uuid")
	assert.Equal(t, 400, code)

	out, code := getJSON(t, app, fmt.Sprintf("/api/v1/deposits/plan-history/%s", uuid.New()))
	assert.Equal(t, 404, code)
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "Deposit plan not found", errObj["message"])
}

func TestPlanHistory_ReturnsPlanWithEmptyHistory(t *testing.T) {
	app, db := setupDepositsTest(t)

	plan := domain.DepositPlan{Type: domain.PlanTypeMonthly, IsActive: true}
	require.NoError(t, db.Create(&plan).Error)

	out, code := getJSON(t, app, fmt.Sprintf("/api/v1/deposits/plan-history/%s", plan.PlanID))
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, plan.PlanID.String(), data["plan"].(map[string]interface{})["plan_id"])
	assert.Empty(t, data["executionHistory"])
}

func TestRollback_UnknownReferenceCode(t *testing.T) {
	app, _ := setupDepositsTest(t)
	out, code := postJSON(t, app, "/api/v1/deposits/rollback/UNKNOWN", nil)
	assert.Equal(t, 404, code)
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "No deposit found with reference code", errObj["message"])
}

func TestRollback_Success(t *testing.T) {
	app, db := setupDepositsTest(t)

	deposit := domain.Deposit{Amount: 100, ReferenceCode: "DEP-7"}
	require.NoError(t, db.Create(&deposit).Error)

	out, code := postJSON(t, app, "/api/v1/deposits/rollback/DEP-7", nil)
	require.Equal(t, 200, code)
	assert.Contains(t, out["message"], "DEP-7")

	var count int64
	require.NoError(t, db.Model(&domain.Deposit{}).Count(&count).Error)
	assert.Zero(t, count)
}
