package admin

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docmatch/docmatch/internal/domain/directory"
	"github.com/docmatch/docmatch/internal/platform/auth"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	g.PUT("/doctors/:id/status", h.SetDoctorStatus)
	g.GET("/doctors/export", h.ExportDoctors)
	g.GET("/stats", h.Stats)
}

func errorStatus(err error) *echo.HTTPError {
	var ve *directory.ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, directory.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetDoctorStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	change, err := h.svc.SetDoctorStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, change)
}

func (h *Handler) ExportDoctors(c echo.Context) error {
	data, err := h.svc.ExportDoctors(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return errorStatus(err)
	}
	name := fmt.Sprintf("doctors-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+name)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, stats)
}
