package handlers

import (
	"errors"

	"paystream/internal/middleware"
	"paystream/internal/services/ledger"
	"paystream/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.EarnerID, claims.EarnerType)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}

	return utils.Success(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	p := utils.GetPagination(c, 1, 20)
	entries, err := h.ledgerService.ListTransactions(c.Context(), claims.EarnerID, claims.EarnerType, p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "failed to list transactions")
	}

	return utils.Success(c, fiber.Map{
		"transactions": entries,
		"page":         p.Page,
		"limit":        p.Limit,
	})
}
