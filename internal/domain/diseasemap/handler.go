package diseasemap

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	table *Table
}

func NewHandler(table *Table) *Handler {
	return &Handler{table: table}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/diseases", h.ListDiseases)
	api.GET("/diseases/lookup", h.LookupDisease)
}

func (h *Handler) ListDiseases(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"diseases":        h.table.Entries(),
		"specializations": h.table.Specializations(),
	})
}

func (h *Handler) LookupDisease(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	e, err := h.table.Lookup(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}
