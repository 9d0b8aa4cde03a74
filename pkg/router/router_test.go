package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes struct {
	prefix string
	list   []Route
}

func (r routes) Prefix() string                          { return r.prefix }
func (r routes) Routes(map[string]fiber.Handler) []Route { return r.list }

func ok(c *fiber.Ctx) error { return c.SendString(c.Path()) }

func TestRegister(t *testing.T) {
	app := fiber.New()
	mark := func(c *fiber.Ctx) error {
		c.Set("X-Mark", "1")
		return c.Next()
	}
	table, err := Register(app, nil,
		routes{prefix: "/api/roles", list: []Route{
			{ID: RouteDeleteRole, Method: fiber.MethodDelete, Path: ":key", Handler: ok, Middlewares: []fiber.Handler{mark}},
		}},
		routes{prefix: "/api", list: []Route{
			{ID: RouteHealth, Method: fiber.MethodGet, Path: "/health", Handler: ok},
		}},
	)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/roles/ops", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Mark"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, found := table.Lookup(RouteDeleteRole)
	assert.True(t, found)
	assert.Contains(t, table.Missing(), RouteLogin)
	assert.NotContains(t, table.Missing(), RouteHealth)
}

func TestRegisterRejectsInvalidTables(t *testing.T) {
	tests := map[string][]Route{
		"unknown id": {{ID: "session.logout", Method: fiber.MethodPost, Path: "/logout", Handler: ok}},
		"empty id":   {{Method: fiber.MethodPost, Path: "/logout", Handler: ok}},
		"duplicate": {
			{ID: RouteLogin, Method: fiber.MethodPost, Path: "/login", Handler: ok},
			{ID: RouteLogin, Method: fiber.MethodPost, Path: "/signin", Handler: ok},
		},
		"no handler": {{ID: RouteMe, Method: fiber.MethodGet, Path: "/me"}},
	}
	for name, list := range tests {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			table, err := Register(app, nil, routes{list: list})
			assert.Error(t, err)
			assert.Nil(t, table)
			assert.Empty(t, app.GetRoutes(true), "nothing is registered on failure")
		})
	}
}

func TestKnownIsSorted(t *testing.T) {
	ids := Known()
	require.Len(t, ids, 9)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestChain(t *testing.T) {
	auth := func(c *fiber.Ctx) error { return c.Next() }
	chain := Chain(map[string]fiber.Handler{MiddlewareAuth: auth}, MiddlewareRateLimit, MiddlewareAuth)
	assert.Len(t, chain, 1)
	assert.Empty(t, Chain(nil, MiddlewareAuth))
}
