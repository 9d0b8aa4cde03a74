package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// State 服务状态
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Hook 生命周期钩子
type Hook func(ctx context.Context, s *Service) error

// Service HTTP服务包装器
type Service struct {
	name            string
	addr            string
	app             *fiber.App
	log             *zap.Logger
	shutdownTimeout time.Duration

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	state    atomic.Int32
	listener net.Listener
}

func newService(name string) *Service {
	return &Service{
		name:            name,
		log:             zap.NewNop(),
		shutdownTimeout: 10 * time.Second,
	}
}

// Name 服务名称
func (s *Service) Name() string { return s.name }

// State 当前状态
func (s *Service) State() State { return State(s.state.Load()) }

// Ready 是否已就绪
func (s *Service) Ready() bool { return s.State() == StateReady }

// Addr 实际监听地址, 未监听时返回配置的地址
func (s *Service) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Run 运行服务, 阻塞直到 ctx 取消、收到退出信号或HTTP服务出错
func (s *Service) Run(ctx context.Context) error {
	if s.app == nil {
		return errors.New("lifecycle: app is not set")
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return fmt.Errorf("lifecycle: service already %s", s.State())
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, fn := range s.onStart {
		if err := fn(ctx, s); err != nil {
			s.abort()
			return fmt.Errorf("start hook: %w", err)
		}
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.abort()
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("服务启动", zap.String("service", s.name), zap.String("address", ln.Addr().String()))
		errCh <- s.app.Listener(ln)
	}()

	for _, fn := range s.onReady {
		if err := fn(ctx, s); err != nil {
			s.log.Error("就绪钩子执行失败", zap.Error(err))
			return errors.Join(fmt.Errorf("ready hook: %w", err), s.shutdown())
		}
	}
	s.state.Store(int32(StateReady))

	select {
	case <-ctx.Done():
		s.log.Info("收到退出信号，正在关闭服务...", zap.String("service", s.name))
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("server error: %w", err)
		}
	}
	return s.shutdown()
}

// abort 未开始监听就失败时只执行停止钩子
func (s *Service) abort() {
	s.state.Store(int32(StateStopping))
	defer s.state.Store(int32(StateStopped))

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.runStopHooks(ctx)
}

func (s *Service) runStopHooks(ctx context.Context) {
	for _, fn := range s.onStop {
		if err := fn(ctx, s); err != nil {
			s.log.Error("停止钩子执行失败", zap.Error(err))
		}
	}
}

// shutdown 优雅关闭, 停止钩子使用独立的超时上下文
func (s *Service) shutdown() error {
	s.state.Store(int32(StateStopping))
	defer s.state.Store(int32(StateStopped))

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		s.log.Error("关闭HTTP服务失败", zap.Error(err))
		errs = append(errs, err)
	}
	s.runStopHooks(ctx)
	s.log.Info("服务已停止", zap.String("service", s.name))
	return errors.Join(errs...)
}
