package mw

import (
	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

// Auth rejects requests without a valid bearer token before any other route
// middleware runs. It must sit ahead of the response cache: a cache hit never
// reaches the handler, so the handler's own credential check cannot be the
// only gate.
func Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := utils.ParseTokenDataCtx(c)
		if err != nil {
			return c.JSON(401, apierror.InvalidAuthTokenError)
		}
		utils.SetTokenDataCtx(c, data)
		return next(c)
	}
}
