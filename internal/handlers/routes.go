package handlers

import (
	"paystream/internal/middleware"
	"paystream/internal/services/ledger"
	"paystream/internal/services/withdrawal"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes wires all HTTP endpoints.
func SetupRoutes(app *fiber.App, ledgerSvc ledger.Service, withdrawalSvc withdrawal.Service) {
	app.Get("/health", HealthCheck)

	walletHandler := NewWalletHandler(ledgerSvc)
	withdrawalHandler := NewWithdrawalHandler(withdrawalSvc)
	adminHandler := NewAdminHandler(withdrawalSvc, ledgerSvc)
	earningsHandler := NewEarningsHandler(ledgerSvc)

	api := app.Group("/api", middleware.Auth)

	// Earner routes
	wallet := api.Group("/wallet", middleware.RequireEarner)
	wallet.Get("/", walletHandler.GetWallet)
	wallet.Get("/transactions", walletHandler.GetTransactions)
	wallet.Post("/withdrawals", withdrawalHandler.RequestWithdrawal)
	wallet.Get("/withdrawals", withdrawalHandler.ListWithdrawals)

	// Admin routes
	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Get("/withdrawals/pending", adminHandler.ListPendingWithdrawals)
	admin.Get("/withdrawals/stats", adminHandler.GetWithdrawalStats)
	admin.Post("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
	admin.Post("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
	admin.Post("/wallets/:earnerType/:earnerId/adjust", adminHandler.AdjustWallet)
	admin.Get("/wallets/:earnerType/:earnerId/verify", adminHandler.VerifyWallet)

	// Internal producer routes (order fulfillment)
	internal := api.Group("/internal", middleware.RequireService)
	internal.Post("/earnings", earningsHandler.RecordEarning)
}
