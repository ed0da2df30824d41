package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmehdipour/qmail/internal/model"
	"github.com/jmehdipour/qmail/internal/service/provision"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// Provisioner is satisfied by *provision.Service.
type Provisioner interface {
	Provision(ctx context.Context, reg model.Registration) (model.ProvisionResult, error)
}

type provisionReq struct {
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	AmountPaid  *decimal.Decimal `json:"amount_paid"` // number or numeric string
	Description string           `json:"description"`
	InboxFee    string           `json:"inbox_fee"`
}

func provisionHandler(svc Provisioner) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req provisionReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		if req.AmountPaid == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "amount_paid is required"})
		}

		res, err := svc.Provision(c.Request().Context(), model.Registration{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			AmountPaid:  *req.AmountPaid,
			Description: req.Description,
			InboxFee:    req.InboxFee,
		})
		if err != nil {
			if errors.Is(err, provision.ErrInvalidRegistration) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}

			log.Errorf("provision failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "provisioning failed"})
		}

		return c.JSON(http.StatusOK, res)
	}
}
