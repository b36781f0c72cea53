package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/service"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type AppointmentService interface {
	GetAppointments(filter service.AppointmentListFilter) ([]*service.AppointmentResponse, apierror.ErrorResponse)
	CreateAppointment(req *service.AppointmentRequest) (*service.AppointmentResponse, apierror.ErrorResponse)
	UpdateAppointment(id int, req *service.UpdateAppointmentRequest) (*service.AppointmentResponse, apierror.ErrorResponse)
	CancelAppointment(id int, reason string) apierror.ErrorResponse
	SearchSlots(employeeID int, dateFrom, dateTo string, durationMin int) (*service.SlotSearchResponse, apierror.ErrorResponse)
}

type DefaultAppointmentRoute struct {
	AppointmentService AppointmentService
}

func NewAppointmentDefault(apptService AppointmentService) *DefaultAppointmentRoute {
	return &DefaultAppointmentRoute{AppointmentService: apptService}
}

func (a *DefaultAppointmentRoute) GetAppointments(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanManageSchedule() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	filter := service.AppointmentListFilter{
		EmployeeID: intQueryParam(c, "employee_id"),
		PatientID:  intQueryParam(c, "patient_id"),
		Date:       c.QueryParam("date"),
		DateFrom:   c.QueryParam("date_from"),
		DateTo:     c.QueryParam("date_to"),
		Status:     c.QueryParam("status"),
	}

	appts, apierr := a.AppointmentService.GetAppointments(filter)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"appointments": appts}
	return c.JSON(http.StatusOK, &resp)
}

func (a *DefaultAppointmentRoute) CreateAppointment(c echo.Context) error {
	var req service.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanManageSchedule() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	appt, apierr := a.AppointmentService.CreateAppointment(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, appt)
}

// UpdateAppointment covers both status transitions and reschedules.
func (a *DefaultAppointmentRoute) UpdateAppointment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, apierror.NewInvalidParamTypeError("id", "int32"))
	}

	var req service.UpdateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanManageSchedule() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	appt, apierr := a.AppointmentService.UpdateAppointment(id, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) CancelAppointment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, apierror.NewInvalidParamTypeError("id", "int32"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanManageSchedule() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	apierr := a.AppointmentService.CancelAppointment(id, c.QueryParam("reason"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

// SearchSlots lists bookable slots for an employee over a date range.
func (a *DefaultAppointmentRoute) SearchSlots(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	employeeID := intQueryParam(c, "employee_id")
	if employeeID == 0 {
		return c.JSON(400, apierror.NewMissingParamError("employee_id"))
	}
	dateFrom := c.QueryParam("date_from")
	if dateFrom == "" {
		return c.JSON(400, apierror.NewMissingParamError("date_from"))
	}
	dateTo := c.QueryParam("date_to")
	if dateTo == "" {
		dateTo = dateFrom
	}
	duration := intQueryParam(c, "duration_min")
	if duration == 0 {
		return c.JSON(400, apierror.NewMissingParamError("duration_min"))
	}

	slots, apierr := a.AppointmentService.SearchSlots(employeeID, dateFrom, dateTo, duration)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, slots)
}

func intQueryParam(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
