package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/agentea/internal/store"
)

// ItemStore is the slice of the store the debug routes touch.
type ItemStore interface {
	Ping(ctx context.Context) error
	ListTestItems(ctx context.Context) ([]store.TestItem, error)
	AddTestItem(ctx context.Context, name string, description *string) (store.TestItem, error)
}

// DebugHandler exposes database round trips for operators.
type DebugHandler struct {
	Store ItemStore
}

func (h *DebugHandler) Register(g *echo.Group) {
	g.GET("/db_check", h.dbCheck)
	g.POST("/db_add_item", h.addItem)
}

func (h *DebugHandler) dbCheck(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.Store.Ping(ctx); err != nil {
		return dbError(err)
	}
	items, err := h.Store.ListTestItems(ctx)
	if err != nil {
		return dbError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"connection_test": true,
		"items_count":     len(items),
		"items":           items,
	})
}

func (h *DebugHandler) addItem(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	var desc *string
	if c.QueryParams().Has("description") {
		d := c.QueryParam("description")
		desc = &d
	}
	item, err := h.Store.AddTestItem(c.Request().Context(), name, desc)
	if err != nil {
		return dbError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Item added successfully",
		"item":    item,
	})
}

func dbError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "Database error: "+err.Error()).SetInternal(err)
}
