package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/authcore/pkg/auth"
	"github.com/authcore/pkg/cache"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/database"
	"github.com/authcore/pkg/lifecycle"
	"github.com/authcore/pkg/logger"
	"github.com/authcore/services/auth/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "auth-service"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "authcore",
		Short:         "Authentication and authorization service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径, 默认在 ./configs 下查找 config.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(hashSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// hash-password 只做离线计算, 不需要配置文件中的密钥
func hashPasswordCmd() *cobra.Command {
	var iterations, keyLength int
	cmd := &cobra.Command{
		Use:   "hash-password <username> <password>",
		Short: "生成用户密码的存储格式",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher := auth.NewHasher(&config.AuthConfig{HashIterations: iterations, KeyLength: keyLength})
			fmt.Fprintln(cmd.OutOrStdout(), hasher.HashPassword(args[0], args[1]))
			return nil
		},
	}
	addHashFlags(cmd, &iterations, &keyLength)
	return cmd
}

func hashSecretCmd() *cobra.Command {
	var iterations, keyLength int
	cmd := &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "生成客户端密钥的存储格式",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher := auth.NewHasher(&config.AuthConfig{HashIterations: iterations, KeyLength: keyLength})
			stored, err := hasher.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored)
			return nil
		},
	}
	addHashFlags(cmd, &iterations, &keyLength)
	return cmd
}

func addHashFlags(cmd *cobra.Command, iterations, keyLength *int) {
	defaults := config.Default().Auth
	cmd.Flags().IntVar(iterations, "iterations", defaults.HashIterations, "PBKDF2 迭代次数, 需与服务配置一致")
	cmd.Flags().IntVar(keyLength, "key-length", defaults.KeyLength, "派生密钥长度(字节)")
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, log, nil
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}

	var (
		cacheStore cache.Store
		rdb        *database.Redis
	)
	switch cfg.Cache.Backend {
	case "redis":
		rdb, err = database.OpenRedis(ctx, &cfg.Redis)
		if err != nil {
			_ = database.Close(db)
			return fmt.Errorf("初始化Redis失败: %w", err)
		}
		cacheStore = cache.NewRedisStore(rdb.Client)
	case "memory":
		cacheStore = cache.NewMemoryStore(cfg.Cache.Size, cfg.Cache.TTLDuration())
	}

	srv, err := server.New(server.Options{
		Config: cfg,
		DB:     db,
		Cache:  cacheStore,
		Logger: log,
	})
	if err != nil {
		_ = closeAll(db, rdb)
		return err
	}

	return lifecycle.New(serviceName).
		Addr(cfg.Server.HTTP.Addr()).
		App(srv.App).
		Logger(log).
		OnStart(func(ctx context.Context, s *lifecycle.Service) error {
			if !cfg.Database.AutoMigrate {
				return nil
			}
			if err := srv.Store.Migrate(ctx); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			log.Info("数据库迁移完成")
			return nil
		}).
		OnReady(func(ctx context.Context, s *lifecycle.Service) error {
			log.Info("认证服务就绪",
				zap.String("addr", s.Addr()),
				zap.String("cache", cfg.Cache.Backend),
				zap.String("db", cfg.Database.Driver),
			)
			return nil
		}).
		OnStop(func(ctx context.Context, s *lifecycle.Service) error {
			log.Info("认证服务正在清理资源...")
			return closeAll(db, rdb)
		}).
		Run(ctx)
}

func closeAll(db *gorm.DB, rdb *database.Redis) error {
	return errors.Join(database.Close(db), rdb.Close())
}
