package handlers

import (
	"errors"

	"paystream/internal/middleware"
	"paystream/internal/models"
	"paystream/internal/services/ledger"
	"paystream/internal/services/withdrawal"
	"paystream/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AdminHandler struct {
	withdrawalService withdrawal.Service
	ledgerService     ledger.Service
}

func NewAdminHandler(withdrawalService withdrawal.Service, ledgerService ledger.Service) *AdminHandler {
	return &AdminHandler{
		withdrawalService: withdrawalService,
		ledgerService:     ledgerService,
	}
}

func (h *AdminHandler) ListPendingWithdrawals(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 50)
	reqs, err := h.withdrawalService.ListPending(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "failed to list pending withdrawals")
	}

	return utils.Success(c, fiber.Map{
		"withdrawals": reqs,
		"page":        p.Page,
		"limit":       p.Limit,
	})
}

func (h *AdminHandler) ApproveWithdrawal(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return utils.BadRequest(c, "invalid request id")
	}

	var input struct {
		Notes         string `json:"notes"`
		TransactionID string `json:"transaction_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.TransactionID == "" {
		return utils.BadRequest(c, "transaction_id is required")
	}

	req, err := h.withdrawalService.Approve(c.Context(), uint(requestID),
		claims.Subject, input.Notes, input.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrRequestNotFound):
			return utils.NotFound(c, "withdrawal request not found")
		case errors.Is(err, withdrawal.ErrAlreadyProcessed):
			return utils.Conflict(c, "withdrawal request already processed")
		case errors.Is(err, withdrawal.ErrInsufficientBalance):
			return utils.BadRequest(c, "wallet balance no longer covers the requested amount")
		case errors.Is(err, withdrawal.ErrStorageConflict):
			return utils.ServiceUnavailable(c, "operation failed, please retry")
		default:
			return utils.InternalError(c, "failed to approve withdrawal")
		}
	}

	return utils.Success(c, fiber.Map{"withdrawal": req})
}

func (h *AdminHandler) RejectWithdrawal(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	requestID, err := c.ParamsInt("id")
	if err != nil || requestID <= 0 {
		return utils.BadRequest(c, "invalid request id")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		return utils.BadRequest(c, "reason is required")
	}

	req, err := h.withdrawalService.Reject(c.Context(), uint(requestID), claims.Subject, input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrRequestNotFound):
			return utils.NotFound(c, "withdrawal request not found")
		case errors.Is(err, withdrawal.ErrAlreadyProcessed):
			return utils.Conflict(c, "withdrawal request already processed")
		case errors.Is(err, withdrawal.ErrStorageConflict):
			return utils.ServiceUnavailable(c, "operation failed, please retry")
		default:
			return utils.InternalError(c, "failed to reject withdrawal")
		}
	}

	return utils.Success(c, fiber.Map{"withdrawal": req})
}

func (h *AdminHandler) GetWithdrawalStats(c *fiber.Ctx) error {
	stats, err := h.withdrawalService.Stats(c.Context())
	if err != nil {
		return utils.InternalError(c, "failed to get withdrawal stats")
	}
	return utils.Success(c, fiber.Map{"stats": stats})
}

// AdjustWallet records a corrective ledger adjustment. Amount is signed:
// negative amounts debit the wallet.
func (h *AdminHandler) AdjustWallet(c *fiber.Ctx) error {
	earnerType := c.Params("earnerType")
	earnerID, err := c.ParamsInt("earnerId")
	if err != nil || earnerID <= 0 {
		return utils.BadRequest(c, "invalid earner id")
	}

	var input struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Description == "" {
		return utils.BadRequest(c, "description is required")
	}

	wallet, err := h.ledgerService.Adjust(c.Context(), uint(earnerID), earnerType, input.Amount, input.Description)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidEarnerType):
			return utils.BadRequest(c, "invalid earner type")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be non-zero")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return utils.BadRequest(c, "adjustment exceeds current balance")
		case errors.Is(err, ledger.ErrWalletNotFound):
			return utils.NotFound(c, "wallet not found")
		case errors.Is(err, ledger.ErrStorageConflict):
			return utils.ServiceUnavailable(c, "operation failed, please retry")
		default:
			return utils.InternalError(c, "failed to adjust wallet")
		}
	}

	return utils.Success(c, fiber.Map{"wallet": wallet})
}

// VerifyWallet replays the ledger for one earner and reports whether the
// cached balance matches.
func (h *AdminHandler) VerifyWallet(c *fiber.Ctx) error {
	earnerType := c.Params("earnerType")
	if !models.ValidEarnerType(earnerType) {
		return utils.BadRequest(c, "invalid earner type")
	}
	earnerID, err := c.ParamsInt("earnerId")
	if err != nil || earnerID <= 0 {
		return utils.BadRequest(c, "invalid earner id")
	}

	err = h.ledgerService.CheckConsistency(c.Context(), uint(earnerID), earnerType)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrWalletNotFound):
			return utils.NotFound(c, "wallet not found")
		case errors.Is(err, ledger.ErrLedgerInconsistent):
			return utils.Respond(c, fiber.StatusConflict, fiber.Map{
				"consistent": false,
				"error":      err.Error(),
			})
		default:
			return utils.InternalError(c, "failed to verify wallet")
		}
	}

	return utils.Success(c, fiber.Map{"consistent": true})
}
