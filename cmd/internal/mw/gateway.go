package mw

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"medsched/cmd/internal/utils"
)

// HeaderGatewaySecret authenticates the bot gateway.
const HeaderGatewaySecret = "X-Gateway-Secret"

// GatewayAuth guards the /gateway surface with a shared secret. A matching
// header grants the gateway role for the request; the bot process is trusted
// to name the patient it acts for.
func GatewayAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return c.NoContent(http.StatusServiceUnavailable)
			}

			provided := c.Request().Header.Get(HeaderGatewaySecret)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				return c.NoContent(http.StatusUnauthorized)
			}

			utils.SetTokenDataCtx(c, &utils.TokenData{Sub: "gateway", Role: utils.RoleGateway})
			return next(c)
		}
	}
}
