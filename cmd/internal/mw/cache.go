package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (w *bodyCacheWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Cache is a middleware for in-memory caching of GET requests. Slot searches
// hit the same employee/date ranges over and over from the booking UI; a few
// seconds of caching absorbs that without staleness anyone would notice.
func Cache(store *cache.Cache, duration time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			key := c.Request().RequestURI
			if resp, found := store.Get(key); found {
				cached := resp.(cachedResponse)
				for k, v := range cached.headers {
					c.Response().Header()[k] = v
				}
				c.Response().WriteHeader(cached.status)
				_, err := c.Response().Write(cached.body)
				return err
			}

			blw := &bodyCacheWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				body:           bytes.NewBuffer(nil),
			}
			c.Response().Writer = blw

			if err := next(c); err != nil {
				return err
			}

			// Only cache successful responses
			if blw.status >= 200 && blw.status < 300 {
				store.Set(key, cachedResponse{
					status:  blw.status,
					headers: c.Response().Header().Clone(),
					body:    blw.body.Bytes(),
				}, duration)
			}
			return nil
		}
	}
}
