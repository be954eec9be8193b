package matching

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docmatch/docmatch/internal/platform/auth"
	"github.com/docmatch/docmatch/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the report API on api (/api/v1) and the routes the
// existing frontend calls on legacy (/api/auth).
func (h *Handler) RegisterRoutes(api *echo.Group, legacy *echo.Group) {
	api.POST("/disease-report", h.SubmitReport)
	api.GET("/patient/:email", h.GetPatient)
	api.GET("/patient/:email/reports", h.ListReports)

	legacy.POST("/insert-disease", h.LegacyInsertDisease)
	legacy.GET("/get-patient/:email", h.LegacyGetPatient)
}

type reportRequest struct {
	Email       string `json:"email"`
	DiseaseName string `json:"diseaseName"`
	Description string `json:"description"`
}

func errorStatus(err error) *echo.HTTPError {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrUnknownDisease), errors.Is(err, ErrMappingInconsistency), errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) submit(c echo.Context) (*Result, error) {
	var req reportRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email != "" && !auth.CanActAsEmail(c.Request().Context(), req.Email) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "patients may only submit their own reports")
	}
	res, err := h.svc.Resolve(c.Request().Context(), req.Email, req.DiseaseName, req.Description)
	if err != nil {
		return nil, errorStatus(err)
	}
	return res, nil
}

func (h *Handler) SubmitReport(c echo.Context) error {
	res, err := h.submit(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func errReadForbidden() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusForbidden, "reports are visible to the patient and their matched doctor only")
}

// authorizeRead lets the patient and admins through. A doctor may read a
// patient only while the directory matches that patient's latest report to
// them, which excludes pending and rejected doctors. The view is returned
// when it had to be loaded for the check.
func (h *Handler) authorizeRead(c echo.Context, email string) (*PatientView, error) {
	ctx := c.Request().Context()
	if auth.CanActAsEmail(ctx, email) {
		return nil, nil
	}
	doctorID := auth.DoctorIDFromContext(ctx)
	if !auth.HasRole(ctx, auth.RoleDoctor) || doctorID == "" {
		return nil, errReadForbidden()
	}
	view, err := h.svc.GetPatientReport(ctx, email)
	if errors.Is(err, ErrPatientNotFound) || errors.Is(err, ErrMappingInconsistency) {
		return nil, errReadForbidden()
	}
	if err != nil {
		return nil, errorStatus(err)
	}
	if view.MatchedDoctor == nil || view.MatchedDoctor.DoctorID.String() != doctorID {
		return nil, errReadForbidden()
	}
	return view, nil
}

func (h *Handler) patient(c echo.Context) (*PatientView, error) {
	email := c.Param("email")
	view, err := h.authorizeRead(c, email)
	if err != nil {
		return nil, err
	}
	if view != nil {
		return view, nil
	}
	view, err = h.svc.GetPatientReport(c.Request().Context(), email)
	if err != nil {
		return nil, errorStatus(err)
	}
	return view, nil
}

func (h *Handler) GetPatient(c echo.Context) error {
	view, err := h.patient(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) ListReports(c echo.Context) error {
	email := c.Param("email")
	if _, err := h.authorizeRead(c, email); err != nil {
		return err
	}
	p := pagination.FromContext(c)
	reports, total, err := h.svc.ListPatientReports(c.Request().Context(), email, p.Limit, p.Offset)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK,
		pagination.NewResponse(reports, total, p.Limit, p.Offset).WithLinks(c.Request().URL.Path))
}

// LegacyInsertDisease keeps the response shape of the original
// /api/auth/insert-disease endpoint.
func (h *Handler) LegacyInsertDisease(c echo.Context) error {
	res, err := h.submit(c)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"success": true,
		"patient": res.Report,
	}
	if res.Matched {
		body["message"] = "Disease entry saved successfully!"
		body["matchedDoctor"] = res.Doctor
	} else {
		body["message"] = "Disease entry saved successfully! No matching doctor found yet."
	}
	return c.JSON(http.StatusCreated, body)
}

func (h *Handler) LegacyGetPatient(c echo.Context) error {
	view, err := h.patient(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"patient":       view.Report,
		"matchedDoctor": view.MatchedDoctor,
	})
}
