package handlers

import (
	"errors"

	"paystream/internal/middleware"
	"paystream/internal/models"
	"paystream/internal/services/withdrawal"
	"paystream/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WithdrawalHandler struct {
	withdrawalService withdrawal.Service
}

func NewWithdrawalHandler(withdrawalService withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

// RequestWithdrawal opens a payout request for the earner's full current
// balance. No amount is accepted in the body.
func (h *WithdrawalHandler) RequestWithdrawal(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	req, err := h.withdrawalService.Request(c.Context(), claims.EarnerID, claims.EarnerType)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrInsufficientBalance):
			return utils.BadRequest(c, "no balance available to withdraw")
		case errors.Is(err, withdrawal.ErrDuplicatePendingRequest):
			return utils.Conflict(c, "a withdrawal request is already pending")
		case errors.Is(err, withdrawal.ErrStorageConflict):
			return utils.ServiceUnavailable(c, "operation failed, please retry")
		default:
			return utils.InternalError(c, "failed to create withdrawal request")
		}
	}

	return utils.Created(c, fiber.Map{"withdrawal": req})
}

func (h *WithdrawalHandler) ListWithdrawals(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	status := c.Query("status")
	switch status {
	case "", models.WithdrawalStatusPending, models.WithdrawalStatusApproved, models.WithdrawalStatusRejected:
	default:
		return utils.BadRequest(c, "invalid status filter")
	}

	p := utils.GetPagination(c, 1, 20)
	reqs, err := h.withdrawalService.ListByEarner(c.Context(), claims.EarnerID, claims.EarnerType, status, p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "failed to list withdrawal requests")
	}

	return utils.Success(c, fiber.Map{
		"withdrawals": reqs,
		"page":        p.Page,
		"limit":       p.Limit,
	})
}
