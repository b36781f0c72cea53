package routes

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/service"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type GatewayAppointmentService interface {
	GetAppointments(filter service.AppointmentListFilter) ([]*service.AppointmentResponse, apierror.ErrorResponse)
	CreateAppointment(req *service.AppointmentRequest) (*service.AppointmentResponse, apierror.ErrorResponse)
	CancelAppointmentByRef(ref string, patientID int, reason string) apierror.ErrorResponse
	SearchSlots(employeeID int, dateFrom, dateTo string, durationMin int) (*service.SlotSearchResponse, apierror.ErrorResponse)
}

// DefaultGatewayRoute is the bot gateway's surface: book, cancel by public
// reference, and look up slots on behalf of a patient in a chat session. The
// shared-secret middleware in front of it grants the gateway role.
type DefaultGatewayRoute struct {
	AppointmentService GatewayAppointmentService
	WaitlistService    WaitlistService
}

func NewGatewayDefault(apptService GatewayAppointmentService, waitlistService WaitlistService) *DefaultGatewayRoute {
	return &DefaultGatewayRoute{AppointmentService: apptService, WaitlistService: waitlistService}
}

// ListAppointments returns one patient's bookings, so the bot can show "your
// upcoming appointments".
func (g *DefaultGatewayRoute) ListAppointments(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	patientID := intQueryParam(c, "patient_id")
	if patientID == 0 {
		return c.JSON(400, apierror.NewMissingParamError("patient_id"))
	}

	appts, apierr := g.AppointmentService.GetAppointments(service.AppointmentListFilter{
		PatientID: patientID,
		DateFrom:  c.QueryParam("date_from"),
		DateTo:    c.QueryParam("date_to"),
	})
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"appointments": appts}
	return c.JSON(http.StatusOK, &resp)
}

func (g *DefaultGatewayRoute) BookAppointment(c echo.Context) error {
	var req service.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	appt, apierr := g.AppointmentService.CreateAppointment(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, appt)
}

type gatewayCancelRequest struct {
	PatientID int    `json:"patient_id"`
	Reason    string `json:"reason"`
}

// CancelAppointment cancels by public reference. The patient id in the body
// must match the booking's; the bot never learns numeric appointment ids.
func (g *DefaultGatewayRoute) CancelAppointment(c echo.Context) error {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		return c.JSON(400, apierror.NewMissingParamError("ref"))
	}

	var req gatewayCancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}
	if req.PatientID == 0 {
		return c.JSON(400, apierror.NewMissingParamError("patient_id"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	if apierr := g.AppointmentService.CancelAppointmentByRef(ref, req.PatientID, req.Reason); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}

func (g *DefaultGatewayRoute) SearchSlots(c echo.Context) error {
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

	slots, apierr := g.AppointmentService.SearchSlots(employeeID, dateFrom, dateTo, duration)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, slots)
}

func (g *DefaultGatewayRoute) JoinWaitlist(c echo.Context) error {
	var req service.WaitlistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	entry, apierr := g.WaitlistService.Join(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (g *DefaultGatewayRoute) ConfirmOffer(c echo.Context) error {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		return c.JSON(400, apierror.NewMissingParamError("ref"))
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	appt, apierr := g.WaitlistService.Confirm(ref)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, appt)
}
