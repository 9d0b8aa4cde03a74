package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/cache"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/pkg/metrics"
	"github.com/authcore/pkg/middleware"
	"github.com/authcore/pkg/oauth"
	"github.com/authcore/pkg/rbac"
	"github.com/authcore/pkg/router"
	"github.com/authcore/services/auth/internal/admin"
	"github.com/authcore/services/auth/internal/session"
	"github.com/authcore/services/auth/internal/store"
	"github.com/authcore/services/auth/internal/token"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 组装服务所需的外部依赖
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	// Cache 为空时直接查库
	Cache  cache.Store
	Logger *zap.Logger
	// Registry 为空时新建, 并注册进程与Go运行时指标
	Registry *prometheus.Registry
	// Clock 测试时替换令牌时钟
	Clock func() time.Time
}

// Server 装配完成的HTTP服务
type Server struct {
	App      *fiber.App
	Store    *store.Store
	Resolver *rbac.Resolver
	Issuer   *oauth.Issuer
	Codec    *auth.TokenCodec
	Hasher   *auth.Hasher
	Routes   *router.Table
}

// New 装配服务
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	log := logger.OrNop(opts.Logger)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.New(reg)

	var codecOpts []auth.CodecOption
	if opts.Clock != nil {
		codecOpts = append(codecOpts, auth.WithClock(opts.Clock))
	}
	codec, err := auth.NewTokenCodec(&cfg.Token, codecOpts...)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	hasher := auth.NewHasher(&cfg.Auth)

	st := store.New(opts.DB, log)
	var (
		source      rbac.PermissionSource
		invalidator rbac.Invalidator
	)
	if opts.Cache != nil {
		cached := rbac.NewCachedSource(rbac.NewStoreSource(st), opts.Cache, cfg.Cache.TTLDuration(), log, m)
		source, invalidator = cached, cached
	} else {
		direct := rbac.NewStoreSource(st)
		source, invalidator = direct, direct
	}
	resolver := rbac.NewResolver(st, source, &cfg.Auth)
	issuer := oauth.NewIssuer(st, hasher, codec, &cfg.OAuth, m)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
	})
	app.Use(middleware.Recovery(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.Cors())
	app.Use(middleware.ErrorHandler(log))

	middlewares := map[string]fiber.Handler{
		router.MiddlewareAuth: middleware.BearerAuth(codec, m),
	}
	if cfg.RateLimit.Max > 0 {
		middlewares[router.MiddlewareRateLimit] = middleware.RateLimit(cfg.RateLimit.Max, time.Duration(cfg.RateLimit.Window)*time.Second, m)
	}

	table, err := router.Register(app, middlewares,
		newOpsController(cfg, opts.DB, reg),
		session.NewController(st, resolver, hasher, codec, log, m),
		token.NewController(issuer, log),
		admin.NewController(st, invalidator, resolver, log, m),
	)
	if err != nil {
		return nil, err
	}
	if missing := table.Missing(); len(missing) > 0 {
		ids := make([]string, len(missing))
		for i, id := range missing {
			ids[i] = string(id)
		}
		return nil, fmt.Errorf("routes not registered: %s", strings.Join(ids, ", "))
	}

	return &Server{
		App:      app,
		Store:    st,
		Resolver: resolver,
		Issuer:   issuer,
		Codec:    codec,
		Hasher:   hasher,
		Routes:   table,
	}, nil
}
