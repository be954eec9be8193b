package directory

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docmatch/docmatch/internal/domain/diseasemap"
	"github.com/docmatch/docmatch/internal/platform/auth"
	"github.com/docmatch/docmatch/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the directory API on api (/api/v1) and the lookup
// the existing frontend calls on legacy (/api/auth).
func (h *Handler) RegisterRoutes(api *echo.Group, legacy *echo.Group) {
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.GET("/doctors/by-email/:email", h.GetDoctorByEmail)
	api.GET("/doctors/:id/availability", h.GetAvailability)

	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.PUT("/doctors/:id/availability", h.SetAvailability)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/doctors/:id", h.DeleteDoctor)

	legacy.GET("/doctors/:email", h.GetDoctorByEmail)
}

func errorStatus(err error) *echo.HTTPError {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListDoctors(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{ApprovalStatus: c.QueryParam("status")}
	if spec := c.QueryParam("specialization"); spec != "" {
		filter.SpecializationKey = diseasemap.NormalizeSpecialization(spec)
	}
	// Only admins see pending and rejected registrations.
	if !auth.HasRole(c.Request().Context(), auth.RoleAdmin) || filter.ApprovalStatus == "" {
		filter.ApprovalStatus = StatusApproved
	}
	if filter.ApprovalStatus == "all" {
		filter.ApprovalStatus = ""
	}

	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, p.Limit, p.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetDoctorByEmail(c echo.Context) error {
	d, err := h.svc.GetDoctorByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":    d.ID,
		"availability": d.Availability,
	})
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

// SetAvailability sets the doctor's online flag, or toggles it when the
// body omits "available".
func (h *Handler) SetAvailability(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if !auth.CanActAsDoctor(c.Request().Context(), id.String()) {
		return echo.NewHTTPError(http.StatusForbidden, "doctors may only change their own availability")
	}

	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var d *DoctorView
	if req.Available == nil {
		d, err = h.svc.ToggleAvailability(c.Request().Context(), id)
	} else {
		d, err = h.svc.SetAvailability(c.Request().Context(), id, *req.Available)
	}
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return errorStatus(err)
	}
	return c.NoContent(http.StatusNoContent)
}
