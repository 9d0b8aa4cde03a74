// Package lifecycle 管理HTTP服务的启动、就绪与优雅关闭
//
// 状态依次为 idle, starting, ready, stopping, stopped.
// 启动钩子在监听端口之前执行, 任一失败则不再监听;
// 就绪钩子在端口监听成功之后执行; 停止钩子总会执行, 错误只记录日志.
//
//	err := lifecycle.New("authcore").
//		Addr(":8080").
//		App(app).
//		Logger(log).
//		OnStart(func(ctx context.Context, s *lifecycle.Service) error {
//			return store.Migrate(ctx)
//		}).
//		OnStop(func(ctx context.Context, s *lifecycle.Service) error {
//			return database.Close(db)
//		}).
//		Run(ctx)
//
// Run 在 ctx 取消或收到 SIGINT/SIGTERM 时返回.
package lifecycle
