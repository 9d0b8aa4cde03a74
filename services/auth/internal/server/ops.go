package server

import (
	"context"
	"time"

	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// opsController 健康检查与指标
type opsController struct {
	cfg *config.Config
	db  *gorm.DB
	reg *prometheus.Registry
}

func newOpsController(cfg *config.Config, db *gorm.DB, reg *prometheus.Registry) *opsController {
	return &opsController{cfg: cfg, db: db, reg: reg}
}

func (c *opsController) Prefix() string { return "" }

func (c *opsController) Routes(map[string]fiber.Handler) []router.Route {
	return []router.Route{
		{ID: router.RouteHealth, Method: fiber.MethodGet, Path: "/health", Handler: c.health},
		{ID: router.RouteMetrics, Method: fiber.MethodGet, Path: "/metrics", Handler: adaptor.HTTPHandler(promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))},
	}
}

func (c *opsController) health(ctx *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	if err := c.ping(ctx.UserContext()); err != nil {
		status, code = "unhealthy", fiber.StatusServiceUnavailable
	}
	return ctx.Status(code).JSON(fiber.Map{
		"status":  status,
		"service": c.cfg.App.Name,
		"version": c.cfg.App.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (c *opsController) ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
