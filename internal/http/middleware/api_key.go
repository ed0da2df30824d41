package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

// AdminKeyMiddleware admits requests whose X-API-Key matches one of keys.
// With no keys configured every request is rejected.
func AdminKeyMiddleware(keys []string) echo.MiddlewareFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}

			for _, a := range allowed {
				if subtle.ConstantTimeCompare([]byte(key), a) == 1 {
					return next(c)
				}
			}

			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
		}
	}
}
