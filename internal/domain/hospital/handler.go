package hospital

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/hsm/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)
	api.POST("/doctors", h.AddDoctor)
	api.POST("/doctors/:id/release", h.ReleaseDoctor)
	api.POST("/doctors/reset", h.ResetDoctorStatuses)

	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.POST("/patients", h.AddPatient)
	api.PUT("/patients/:id", h.EditPatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	api.GET("/waiting-list", h.ListWaitingList)
	api.POST("/waiting-list/reconcile", h.ReconcileWaitingList)
}

// httpError maps domain errors onto status codes.
func httpError(err error) error {
	switch {
	case IsValidation(err), IsNoSelection(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Doctors --

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors := h.svc.ListDoctors(c.Request().Context())
	return c.JSON(http.StatusOK, pagination.Paginate(doctors, pg))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) AddDoctor(c echo.Context) error {
	var req AddDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.AddDoctor(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) ReleaseDoctor(c echo.Context) error {
	d, err := h.svc.ReleaseDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// ResetDoctorStatuses marks the whole roster Available.
func (h *Handler) ResetDoctorStatuses(c echo.Context) error {
	doctors, err := h.svc.ResetDoctorStatuses(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doctors)
}

// -- Patients --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients := h.svc.ListPatients(c.Request().Context())
	return c.JSON(http.StatusOK, pagination.Paginate(patients, pg))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// AddPatient registers a patient. Landing on the waiting list is still a
// 201; the outcome field tells the caller which way it went.
func (h *Handler) AddPatient(c echo.Context) error {
	var req AddPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.AddPatient(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/patients/"+a.Patient.ID)
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) EditPatient(c echo.Context) error {
	var req EditPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ID = c.Param("id")
	p, err := h.svc.EditPatient(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if _, err := h.svc.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Waiting list --

func (h *Handler) ListWaitingList(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries := h.svc.WaitingList(c.Request().Context())
	return c.JSON(http.StatusOK, pagination.Paginate(entries, pg))
}

func (h *Handler) ReconcileWaitingList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ReconcileWaitingList(c.Request().Context()))
}
