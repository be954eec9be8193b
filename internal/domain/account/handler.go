package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docmatch/docmatch/internal/domain/directory"
	"github.com/docmatch/docmatch/internal/platform/auth"
	"github.com/docmatch/docmatch/internal/platform/otp"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the auth API on api (/api/v1) and the routes the
// existing frontend calls on legacy (/api/auth).
func (h *Handler) RegisterRoutes(api *echo.Group, legacy *echo.Group) {
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/signin", h.Signin)
	api.POST("/auth/otp/send", h.SendOTP)
	api.POST("/auth/otp/verify", h.VerifyOTP)
	api.GET("/auth/me", h.Me)

	legacy.POST("/signup", h.LegacySignup)
	legacy.POST("/signin", h.LegacySignin)
	legacy.POST("/doctors/signup-doctor", h.LegacySignupDoctor)
	legacy.POST("/send-otp", h.SendOTP)
	legacy.POST("/verify-otp", h.VerifyOTP)
}

func errorStatus(err error) *echo.HTTPError {
	var ve *ValidationError
	var dve *directory.ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &dve):
		return echo.NewHTTPError(http.StatusBadRequest, dve.Error())
	case errors.Is(err, otp.ErrInvalidPhone), errors.Is(err, otp.ErrInvalidCode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailTaken), errors.Is(err, directory.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) signup(c echo.Context, forceType string) (*Account, error) {
	var in SignupInput
	if err := c.Bind(&in); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if forceType != "" {
		in.UserType = forceType
	}
	a, err := h.svc.Signup(c.Request().Context(), in)
	if err != nil {
		return nil, errorStatus(err)
	}
	return a, nil
}

func (h *Handler) Signup(c echo.Context) error {
	a, err := h.signup(c, "")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signin(c echo.Context) (*SigninResult, error) {
	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return nil, errorStatus(err)
	}
	return res, nil
}

func (h *Handler) Signin(c echo.Context) error {
	res, err := h.signin(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type otpRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (h *Handler) SendOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.SendOTP(c.Request().Context(), req.Phone)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ok, err := h.svc.VerifyOTP(c.Request().Context(), req.Phone, req.Code)
	if err != nil {
		return errorStatus(err)
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid or expired code",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "phone verified",
	})
}

// Me returns the signed-in account.
func (h *Handler) Me(c echo.Context) error {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no account in session")
	}
	a, err := h.svc.repo.GetByID(c.Request().Context(), id)
	if err != nil {
		return errorStatus(err)
	}
	return c.JSON(http.StatusOK, a)
}

// legacyError renders errors as {"message": ...} with the 400 status the
// existing frontend expects for client mistakes.
func legacyError(c echo.Context, err error) error {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return err
	}
	status := he.Code
	if status == http.StatusConflict || status == http.StatusUnauthorized {
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]interface{}{"message": he.Message})
}

func (h *Handler) LegacySignup(c echo.Context) error {
	a, err := h.signup(c, "")
	if err != nil {
		return legacyError(c, err)
	}
	msg := "User registered successfully"
	if a.Role == RoleDoctor {
		msg = "Doctor registered successfully!"
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"message": msg})
}

func (h *Handler) LegacySignupDoctor(c echo.Context) error {
	a, err := h.signup(c, RoleDoctor)
	if err != nil {
		return legacyError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "Doctor registered successfully",
		"doctorId": a.DoctorID,
	})
}

func (h *Handler) LegacySignin(c echo.Context) error {
	res, err := h.signin(c)
	if err != nil {
		return legacyError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   res.Token,
		"user":    res.Account,
	})
}
