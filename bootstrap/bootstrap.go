package bootstrap

import (
	"fundvault-backend/internal/config"
	"fundvault-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless deployment (the api handler imports
// this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, err := router.CreateApp(cfg)
	return app, err
}
