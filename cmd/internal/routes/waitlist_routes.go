package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/service"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type WaitlistService interface {
	GetEntries(status string, employeeID int) ([]*service.WaitlistResponse, apierror.ErrorResponse)
	Join(req *service.WaitlistRequest) (*service.WaitlistResponse, apierror.ErrorResponse)
	Confirm(ref string) (*service.AppointmentResponse, apierror.ErrorResponse)
	Cancel(id int) apierror.ErrorResponse
}

type DefaultWaitlistRoute struct {
	WaitlistService WaitlistService
}

func NewWaitlistDefault(waitlistService WaitlistService) *DefaultWaitlistRoute {
	return &DefaultWaitlistRoute{WaitlistService: waitlistService}
}

func (w *DefaultWaitlistRoute) GetEntries(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanManageSchedule() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	entries, apierr := w.WaitlistService.GetEntries(c.QueryParam("status"), intQueryParam(c, "employee_id"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"entries": entries}
	return c.JSON(http.StatusOK, &resp)
}

func (w *DefaultWaitlistRoute) Join(c echo.Context) error {
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

	entry, apierr := w.WaitlistService.Join(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, entry)
}

// Confirm books the slot currently offered to the entry.
func (w *DefaultWaitlistRoute) Confirm(c echo.Context) error {
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

	appt, apierr := w.WaitlistService.Confirm(ref)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (w *DefaultWaitlistRoute) Cancel(c echo.Context) error {
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

	if apierr := w.WaitlistService.Cancel(id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}
