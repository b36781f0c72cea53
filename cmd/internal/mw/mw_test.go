package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"medsched/cmd/internal/utils"
)

func signTestToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "role": role})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	e := echo.New()
	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}
	g := e.Group("/api", Auth)
	g.GET("/slots", handler, Cache(cache.New(time.Minute, time.Minute), time.Minute))

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/slots?employee_id=1", nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do(signTestToken(t, "staff")).Code)
	assert.Equal(t, http.StatusOK, do(signTestToken(t, "staff")).Code)
	assert.Equal(t, 1, calls)

	// A primed cache must not serve callers that fail the credential check.
	rec := do("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "calls")

	rec = do("not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGatewayAuth(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error {
		data, err := utils.ParseTokenDataCtx(c)
		require.NoError(t, err)
		assert.Equal(t, utils.RoleGateway, data.Role)
		return c.NoContent(http.StatusOK)
	}

	t.Run("grants the gateway role on a matching secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderGatewaySecret, "s3cret")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, GatewayAuth("s3cret")(handler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderGatewaySecret, "wrong")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, GatewayAuth("s3cret")(handler)(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refuses service without a configured secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, GatewayAuth("")(handler)(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	limited := RateLimiter(rate.Limit(1), 1)(handler)

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		require.NoError(t, limited(e.NewContext(req, rec)))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	// Another client has its own bucket.
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestCache(t *testing.T) {
	e := echo.New()
	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}
	cached := Cache(cache.New(time.Minute, time.Minute), time.Minute)(handler)

	do := func(method, uri string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, uri, nil)
		rec := httptest.NewRecorder()
		require.NoError(t, cached(e.NewContext(req, rec)))
		return rec
	}

	first := do(http.MethodGet, "/slots?employee_id=1")
	second := do(http.MethodGet, "/slots?employee_id=1")
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// Different query, fresh response.
	do(http.MethodGet, "/slots?employee_id=2")
	assert.Equal(t, 2, calls)

	// Writes are never cached.
	do(http.MethodPost, "/slots?employee_id=1")
	do(http.MethodPost, "/slots?employee_id=1")
	assert.Equal(t, 4, calls)
}
