package utils

import (
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Roles carried in staff tokens. The gateway role is set by the shared-secret
// middleware, never by a token.
const (
	RoleAdmin   = "admin"
	RoleStaff   = "staff"
	RoleGateway = "gateway"
)

// TokenData is the per-request identity every handler checks before calling
// into a service.
type TokenData struct {
	Sub  string
	Role string
}

// CanManageSchedule reports whether the caller may create or change
// appointments and breaks.
func (t *TokenData) CanManageSchedule() bool {
	return t.Role == RoleAdmin || t.Role == RoleStaff
}

// CanActForPatients reports whether the caller may book, cancel and join the
// waitlist on behalf of a patient.
func (t *TokenData) CanActForPatients() bool {
	return t.Role == RoleAdmin || t.Role == RoleStaff || t.Role == RoleGateway
}

const tokenDataKey = "token_data"

var ErrNoToken = errors.New("missing or invalid bearer token")

// SetTokenDataCtx stores the request identity; used by the auth middleware.
func SetTokenDataCtx(c echo.Context, data *TokenData) {
	c.Set(tokenDataKey, data)
}

// ParseTokenDataCtx returns the request identity, either placed in the
// context by middleware or parsed from the Authorization bearer token.
func ParseTokenDataCtx(c echo.Context) (*TokenData, error) {
	if data, ok := c.Get(tokenDataKey).(*TokenData); ok && data != nil {
		return data, nil
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, ErrNoToken
	}
	return ParseToken(raw)
}

// ParseToken validates an HS256 token signed with JWT_SECRET and extracts
// the subject and role claims.
func ParseToken(raw string) (*TokenData, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not configured")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrNoToken
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil, ErrNoToken
	}
	return &TokenData{Sub: sub, Role: role}, nil
}
