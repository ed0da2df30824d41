package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/qmail/internal/model"
	"github.com/jmehdipour/qmail/internal/repository"
	"github.com/jmehdipour/qmail/internal/util"
	echo "github.com/labstack/echo/v4"
)

// RegistrationLister is the read side of the ClickHouse archive.
type RegistrationLister interface {
	List(ctx context.Context, f repository.RegistrationFilter) ([]model.RegistrationRow, error)
}

func listRegistrationsHandler(repo RegistrationLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var class model.Tier
		if raw := strings.TrimSpace(c.QueryParam("class")); raw != "" {
			t, ok := model.ParseTier(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid class"})
			}
			class = t
		}

		rows, err := repo.List(c.Request().Context(), repository.RegistrationFilter{
			Class:    class,
			LastName: util.NormalizeName(c.QueryParam("last_name")),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
