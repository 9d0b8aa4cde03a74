package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RouteID 路由标识, 只能取下列常量
type RouteID string

const (
	RouteHealth             RouteID = "health"
	RouteMetrics            RouteID = "metrics"
	RouteLogin              RouteID = "session.login"
	RouteRefresh            RouteID = "session.refresh"
	RouteMe                 RouteID = "session.me"
	RouteToken              RouteID = "oauth.token"
	RouteSetRolePermissions RouteID = "admin.role.permissions"
	RouteDeleteRole         RouteID = "admin.role.delete"
	RouteSetUserRoles       RouteID = "admin.user.roles"
)

var known = map[RouteID]struct{}{
	RouteHealth:             {},
	RouteMetrics:            {},
	RouteLogin:              {},
	RouteRefresh:            {},
	RouteMe:                 {},
	RouteToken:              {},
	RouteSetRolePermissions: {},
	RouteDeleteRole:         {},
	RouteSetUserRoles:       {},
}

// Known 全部路由标识, 已排序
func Known() []RouteID {
	ids := make([]RouteID, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Route 路由配置
type Route struct {
	ID          RouteID
	Method      string          // HTTP方法
	Path        string          // 以/开头为绝对路径, 否则相对于前缀
	Handler     fiber.Handler   // 处理函数
	Middlewares []fiber.Handler // 路由级中间件
}

// Registrar 路由注册器接口
type Registrar interface {
	// Prefix 返回路由前缀
	Prefix() string
	// Routes 返回路由配置列表,接收中间件作为参数
	Routes(middlewares map[string]fiber.Handler) []Route
}

// Table 已注册的路由表
type Table struct {
	routes map[RouteID]Route
}

// Missing 尚未注册的路由标识
func (t *Table) Missing() []RouteID {
	var out []RouteID
	for _, id := range Known() {
		if _, ok := t.routes[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Lookup 按标识查找路由
func (t *Table) Lookup(id RouteID) (Route, bool) {
	r, ok := t.routes[id]
	return r, ok
}

// Register 校验并注册路由. 标识未知、重复或缺少处理函数时返回错误且不注册任何路由.
func Register(app fiber.Router, middlewares map[string]fiber.Handler, controllers ...Registrar) (*Table, error) {
	type entry struct {
		prefix string
		route  Route
	}
	table := &Table{routes: make(map[RouteID]Route)}
	var entries []entry

	for _, ctrl := range controllers {
		prefix := ctrl.Prefix()
		for _, route := range ctrl.Routes(middlewares) {
			if _, ok := known[route.ID]; !ok {
				return nil, fmt.Errorf("router: unknown route id %q (%s %s)", route.ID, route.Method, route.Path)
			}
			if _, dup := table.routes[route.ID]; dup {
				return nil, fmt.Errorf("router: duplicate route id %q", route.ID)
			}
			if route.Handler == nil {
				return nil, fmt.Errorf("router: route %q has no handler", route.ID)
			}
			table.routes[route.ID] = route
			entries = append(entries, entry{prefix: prefix, route: route})
		}
	}

	for _, e := range entries {
		path := e.route.Path
		if !strings.HasPrefix(path, "/") {
			// 相对路径挂到前缀下, 绝对路径原样注册
			path = joinPath(e.prefix, path)
		}
		app.Add(e.route.Method, path, buildHandlers(e.route)...)
	}
	return table, nil
}

func joinPath(prefix, path string) string {
	if path == "" {
		return "/" + strings.Trim(prefix, "/")
	}
	return strings.TrimSuffix(prefix, "/") + "/" + path
}

// buildHandlers 构建处理器链(中间件 + 处理函数)
func buildHandlers(route Route) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(route.Middlewares)+1)
	handlers = append(handlers, route.Middlewares...)
	return append(handlers, route.Handler)
}

// 中间件名称
const (
	MiddlewareAuth      = "auth"
	MiddlewareRateLimit = "rateLimit"
)

// Chain 按名称取出中间件, 未提供的名称跳过
func Chain(middlewares map[string]fiber.Handler, names ...string) []fiber.Handler {
	var chain []fiber.Handler
	for _, name := range names {
		if h, ok := middlewares[name]; ok && h != nil {
			chain = append(chain, h)
		}
	}
	return chain
}
