package router

import (
	"net/http"

	auditsvc "fundvault-backend/internal/application/audit"
	depositsvc "fundvault-backend/internal/application/deposits"
	healthsvc "fundvault-backend/internal/application/health"
	"fundvault-backend/internal/config"
	"fundvault-backend/internal/infrastructure/cache"
	"fundvault-backend/internal/infrastructure/database"
	deposithandler "fundvault-backend/internal/interfaces/handlers/deposits"
	healthhandler "fundvault-backend/internal/interfaces/handlers/health"
	"fundvault-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

var _ healthsvc.DBPinger = (*gormDBPinger)(nil)

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	cacheClient, err := cache.New(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := cacheClient.Rdb
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		hh.DB = &gormDBPinger{db: db}
	}

	if db != nil && rdb != nil {
		ds := &depositsvc.Service{
			DB:    db,
			Cache: cacheClient,
			Audit: &auditsvc.Recorder{DB: db},
		}
		dh := &deposithandler.Handlers{Service: ds}
		dg := app.Group("/api/v1/deposits")
		dg.Post("/allocate", dh.AllocateDeposits)
		dg.Post("/create-portfolio", dh.CreatePortfolio)
		dg.Get("/portfolios", dh.GetPortfolios)
		dg.Post("/create-plan", dh.CreateDepositPlan)
		dg.Get("/plan-history/:id", dh.GetPlanHistory)
		dg.Post("/create-deposit", dh.CreateDeposit)
		dg.Get("/active-plans", dh.GetActivePlans)
		dg.Get("/plans", dh.GetDepositPlans)
		dg.Post("/rollback/:referenceCode", dh.RollbackDeposit)
		dg.Get("/", dh.GetDeposits)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
