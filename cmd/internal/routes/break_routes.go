package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/service"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type BreakService interface {
	GetBreaks(employeeID int, date string) ([]*service.BreakResponse, apierror.ErrorResponse)
	CreateBreak(req *service.BreakRequest) (*service.BreakResponse, apierror.ErrorResponse)
	DeleteBreak(id int) apierror.ErrorResponse
}

type DefaultBreakRoute struct {
	BreakService BreakService
}

func NewBreakDefault(breakService BreakService) *DefaultBreakRoute {
	return &DefaultBreakRoute{BreakService: breakService}
}

func (b *DefaultBreakRoute) GetBreaks(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return c.JSON(401, apierror.InvalidAuthTokenError)
	}
	if !data.CanManageSchedule() {
		return c.JSON(403, apierror.ForbiddenError)
	}

	employeeID := intQueryParam(c, "employee_id")
	if employeeID == 0 {
		return c.JSON(400, apierror.NewMissingParamError("employee_id"))
	}

	breaks, apierr := b.BreakService.GetBreaks(employeeID, c.QueryParam("date"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"breaks": breaks}
	return c.JSON(http.StatusOK, &resp)
}

func (b *DefaultBreakRoute) CreateBreak(c echo.Context) error {
	var req service.BreakRequest
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

	brk, apierr := b.BreakService.CreateBreak(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, brk)
}

func (b *DefaultBreakRoute) DeleteBreak(c echo.Context) error {
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

	if apierr := b.BreakService.DeleteBreak(id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.NoContent(http.StatusOK)
}
