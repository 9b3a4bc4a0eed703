package handlers

import (
	"errors"
	"fmt"

	"paystream/internal/models"
	"paystream/internal/services/ledger"
	"paystream/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// EarningsHandler receives credit events from the order fulfillment service.
type EarningsHandler struct {
	ledgerService ledger.Service
}

func NewEarningsHandler(ledgerService ledger.Service) *EarningsHandler {
	return &EarningsHandler{ledgerService: ledgerService}
}

// RecordEarning credits an earner when an order is delivered. The caller is
// trusted to send at most one event per delivery; reference_id carries the
// order identifier so duplicates can be traced in the ledger.
func (h *EarningsHandler) RecordEarning(c *fiber.Ctx) error {
	var input struct {
		EarnerID    uint            `json:"earner_id"`
		EarnerType  string          `json:"earner_type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		ReferenceID string          `json:"reference_id"`
		OrderCode   string          `json:"order_code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.EarnerID == 0 {
		return utils.BadRequest(c, "earner_id is required")
	}

	description := input.Description
	if description == "" && input.OrderCode != "" {
		description = fmt.Sprintf("Earning for order #%s", input.OrderCode)
	}

	wallet, err := h.ledgerService.Credit(c.Context(), input.EarnerID, input.EarnerType,
		input.Amount, description, input.ReferenceID, models.ReferenceTypeOrder)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidEarnerType):
			return utils.BadRequest(c, "invalid earner type")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be greater than zero")
		case errors.Is(err, ledger.ErrStorageConflict):
			return utils.ServiceUnavailable(c, "operation failed, please retry")
		default:
			return utils.InternalError(c, "failed to record earning")
		}
	}

	return utils.Created(c, fiber.Map{"wallet": wallet})
}
