package lifecycle

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Builder 服务构建器 - 链式调用创建服务
type Builder struct {
	svc *Service
}

// New 创建服务构建器
func New(name string) *Builder {
	return &Builder{svc: newService(name)}
}

// Addr 设置监听地址
func (b *Builder) Addr(addr string) *Builder {
	b.svc.addr = addr
	return b
}

// App 设置Fiber应用
func (b *Builder) App(app *fiber.App) *Builder {
	b.svc.app = app
	return b
}

// Logger 设置日志
func (b *Builder) Logger(log *zap.Logger) *Builder {
	if log != nil {
		b.svc.log = log.Named("lifecycle")
	}
	return b
}

// ShutdownTimeout 设置关闭HTTP服务的超时时间
func (b *Builder) ShutdownTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.svc.shutdownTimeout = d
	}
	return b
}

// OnStart 添加启动钩子
func (b *Builder) OnStart(fn Hook) *Builder {
	b.svc.onStart = append(b.svc.onStart, fn)
	return b
}

// OnReady 添加就绪钩子
func (b *Builder) OnReady(fn Hook) *Builder {
	b.svc.onReady = append(b.svc.onReady, fn)
	return b
}

// OnStop 添加停止钩子
func (b *Builder) OnStop(fn Hook) *Builder {
	b.svc.onStop = append(b.svc.onStop, fn)
	return b
}

// Build 构建服务
func (b *Builder) Build() *Service {
	return b.svc
}

// Run 构建并运行服务
func (b *Builder) Run(ctx context.Context) error {
	return b.svc.Run(ctx)
}
