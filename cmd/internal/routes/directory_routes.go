package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/service"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type DirectoryService interface {
	GetEmployees(activeOnly bool) ([]*service.EmployeeResponse, apierror.ErrorResponse)
	GetPatient(id int) (*service.PatientResponse, apierror.ErrorResponse)
	CreatePatient(req *service.PatientRequest) (*service.PatientResponse, apierror.ErrorResponse)
	Subscribe(req *service.SubscriptionRequest) apierror.ErrorResponse
	Unsubscribe(endpoint string) apierror.ErrorResponse
}

type DefaultDirectoryRoute struct {
	DirectoryService DirectoryService
}

func NewDirectoryDefault(directoryService DirectoryService) *DefaultDirectoryRoute {
	return &DefaultDirectoryRoute{DirectoryService: directoryService}
}

// GetEmployees is readable by every authenticated caller; the booking UI and
// the bot both need the staff list.
func (d *DefaultDirectoryRoute) GetEmployees(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	activeOnly := c.QueryParam("include_inactive") != "true"
	employees, apierr := d.DirectoryService.GetEmployees(activeOnly)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"employees": employees}
	return c.JSON(http.StatusOK, &resp)
}

func (d *DefaultDirectoryRoute) GetPatient(c echo.Context) error {
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

	patient, apierr := d.DirectoryService.GetPatient(id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, patient)
}

func (d *DefaultDirectoryRoute) CreatePatient(c echo.Context) error {
	var req service.PatientRequest
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

	patient, apierr := d.DirectoryService.CreatePatient(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, patient)
}

func (d *DefaultDirectoryRoute) Subscribe(c echo.Context) error {
	var req service.SubscriptionRequest
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

	if apierr := d.DirectoryService.Subscribe(&req); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusCreated)
}

func (d *DefaultDirectoryRoute) Unsubscribe(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanActForPatients() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	if apierr := d.DirectoryService.Unsubscribe(c.QueryParam("endpoint")); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}
