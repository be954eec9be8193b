package matching

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docmatch/docmatch/internal/domain/directory"
	"github.com/docmatch/docmatch/internal/platform/auth"
)

func asPatient(req *http.Request, email string) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserRolesKey, []string{auth.RolePatient})
	ctx = context.WithValue(ctx, auth.UserEmailKey, email)
	return req.WithContext(ctx)
}

func asDoctor(req *http.Request, doctorID string) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserRolesKey, []string{auth.RoleDoctor})
	ctx = context.WithValue(ctx, auth.UserEmailKey, "dr@example.com")
	ctx = context.WithValue(ctx, auth.DoctorIDKey, doctorID)
	return req.WithContext(ctx)
}

func newTestHandler(doctors ...*directory.Doctor) (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService(doctors...)
	return NewHandler(svc), svc, echo.New()
}

func postJSON(body, email string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return asPatient(req, email), httptest.NewRecorder()
}

func expectHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != want {
		t.Errorf("expected status %d, got %d (%v)", want, he.Code, he.Message)
	}
}

func TestHandler_SubmitReport(t *testing.T) {
	h, _, e := newTestHandler(newDoctor("Dr. Heart", "Cardiologist"))
	req, rec := postJSON(`{"email":"pat@example.com","diseaseName":"Heart Attack","description":"chest pain"}`, "pat@example.com")
	c := e.NewContext(req, rec)

	if err := h.SubmitReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body struct {
		Matched bool `json:"matched"`
		Doctor  struct {
			Name string `json:"name"`
		} `json:"doctor"`
		Report struct {
			Specialization string `json:"specialization"`
		} `json:"report"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Matched || body.Doctor.Name != "Dr. Heart" || body.Report.Specialization != "Cardiologist" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_SubmitReport_UnknownDisease(t *testing.T) {
	h, _, e := newTestHandler()
	req, rec := postJSON(`{"email":"pat@example.com","diseaseName":"UnknownDiseaseXYZ","description":"x"}`, "pat@example.com")
	err := h.SubmitReport(e.NewContext(req, rec))
	expectHTTPStatus(t, err, http.StatusNotFound)
}

func TestHandler_SubmitReport_MissingField(t *testing.T) {
	h, _, e := newTestHandler()
	req, rec := postJSON(`{"email":"pat@example.com","diseaseName":"Asthma"}`, "pat@example.com")
	err := h.SubmitReport(e.NewContext(req, rec))
	expectHTTPStatus(t, err, http.StatusBadRequest)
}

func TestHandler_SubmitReport_OtherPatientForbidden(t *testing.T) {
	h, _, e := newTestHandler()
	req, rec := postJSON(`{"email":"victim@example.com","diseaseName":"Asthma","description":"x"}`, "pat@example.com")
	err := h.SubmitReport(e.NewContext(req, rec))
	expectHTTPStatus(t, err, http.StatusForbidden)
}

func TestHandler_LegacyInsertDisease_NoMatch(t *testing.T) {
	h, _, e := newTestHandler()
	req, rec := postJSON(`{"email":"pat@example.com","diseaseName":"Asthma","description":"wheezing"}`, "pat@example.com")

	if err := h.LegacyInsertDisease(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("expected success true, got %v", body["success"])
	}
	if _, ok := body["matchedDoctor"]; ok {
		t.Error("expected no matchedDoctor key when unmatched")
	}
	if !strings.Contains(body["message"].(string), "No matching doctor") {
		t.Errorf("unexpected message %v", body["message"])
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, svc, e := newTestHandler(newDoctor("Dr. Heart", "Cardiologist"))
	mustResolve(t, svc, "pat@example.com", "Heart Attack")

	req := asPatient(httptest.NewRequest(http.MethodGet, "/", nil), "pat@example.com")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("email")
	c.SetParamValues("pat@example.com")

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["patient"] == nil || body["matchedDoctor"] == nil {
		t.Errorf("expected patient and matchedDoctor, got %s", rec.Body.String())
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := asPatient(httptest.NewRequest(http.MethodGet, "/", nil), "ghost@example.com")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("email")
	c.SetParamValues("ghost@example.com")
	expectHTTPStatus(t, h.GetPatient(c), http.StatusNotFound)
}

func TestHandler_GetPatient_OtherPatientForbidden(t *testing.T) {
	h, _, e := newTestHandler()
	req := asPatient(httptest.NewRequest(http.MethodGet, "/", nil), "pat@example.com")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("email")
	c.SetParamValues("victim@example.com")
	expectHTTPStatus(t, h.LegacyGetPatient(c), http.StatusForbidden)
}

func TestHandler_ListReports(t *testing.T) {
	h, svc, e := newTestHandler()
	mustResolve(t, svc, "pat@example.com", "Asthma")
	mustResolve(t, svc, "pat@example.com", "Migraine")
	mustResolve(t, svc, "pat@example.com", "Acne")

	req := asPatient(httptest.NewRequest(http.MethodGet, "/api/v1/patient/pat@example.com/reports?limit=2", nil), "pat@example.com")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("email")
	c.SetParamValues("pat@example.com")

	if err := h.ListReports(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []map[string]interface{} `json:"data"`
		Total int                      `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 3 || len(body.Data) != 2 {
		t.Errorf("expected 2 of 3 reports, got %d of %d", len(body.Data), body.Total)
	}
}

func doctorReads(t *testing.T, h *Handler, e *echo.Echo, doctorID string) (error, error) {
	t.Helper()
	get := asDoctor(httptest.NewRequest(http.MethodGet, "/api/v1/patient/pat@example.com", nil), doctorID)
	c := e.NewContext(get, httptest.NewRecorder())
	c.SetParamNames("email")
	c.SetParamValues("pat@example.com")
	getErr := h.GetPatient(c)

	list := asDoctor(httptest.NewRequest(http.MethodGet, "/api/v1/patient/pat@example.com/reports", nil), doctorID)
	c = e.NewContext(list, httptest.NewRecorder())
	c.SetParamNames("email")
	c.SetParamValues("pat@example.com")
	return getErr, h.ListReports(c)
}

func TestHandler_MatchedDoctorReadsPatient(t *testing.T) {
	heart := newDoctor("Dr. Heart", "Cardiologist")
	h, svc, e := newTestHandler(heart)
	mustResolve(t, svc, "pat@example.com", "Heart Attack")

	getErr, listErr := doctorReads(t, h, e, heart.ID.String())
	if getErr != nil || listErr != nil {
		t.Fatalf("expected matched doctor to read the patient, got %v / %v", getErr, listErr)
	}
}

func TestHandler_UnmatchedDoctorForbidden(t *testing.T) {
	heart := newDoctor("Dr. Heart", "Cardiologist")
	h, svc, e := newTestHandler(heart)
	mustResolve(t, svc, "pat@example.com", "Heart Attack")

	getErr, listErr := doctorReads(t, h, e, uuid.New().String())
	expectHTTPStatus(t, getErr, http.StatusForbidden)
	expectHTTPStatus(t, listErr, http.StatusForbidden)
}

func TestHandler_RejectedDoctorForbidden(t *testing.T) {
	heart := newDoctor("Dr. Heart", "Cardiologist")
	h, svc, e := newTestHandler(heart)
	mustResolve(t, svc, "pat@example.com", "Heart Attack")

	heart.ApprovalStatus = directory.StatusRejected
	getErr, listErr := doctorReads(t, h, e, heart.ID.String())
	expectHTTPStatus(t, getErr, http.StatusForbidden)
	expectHTTPStatus(t, listErr, http.StatusForbidden)
}

func TestHandler_DoctorCannotSubmitForPatient(t *testing.T) {
	heart := newDoctor("Dr. Heart", "Cardiologist")
	h, _, e := newTestHandler(heart)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"pat@example.com","diseaseName":"Asthma","description":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(asDoctor(req, heart.ID.String()), httptest.NewRecorder())
	expectHTTPStatus(t, h.SubmitReport(c), http.StatusForbidden)
}

func TestHandler_GetPatient_RetiredDiseaseIsNotFound(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.reports = append(repo.reports, &Report{
		ID: uuid.New(), Email: "pat@example.com", DiseaseName: "Retired Disease", CreatedAt: testNow,
	})
	h, e := NewHandler(svc), echo.New()
	req := asPatient(httptest.NewRequest(http.MethodGet, "/", nil), "pat@example.com")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("email")
	c.SetParamValues("pat@example.com")

	expectHTTPStatus(t, h.GetPatient(c), http.StatusNotFound)
}
