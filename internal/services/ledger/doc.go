/*
Package ledger provides the earner wallet ledger.

The ledger service owns every balance mutation. Each mutating operation runs
inside a single database transaction that updates the wallet row and appends
a wallet_transactions entry together, so the balance column can never drift
from the log. The wallet row is locked for the duration of the transaction,
which serializes concurrent mutations per earner; retryable storage conflicts
are retried a bounded number of times before surfacing as ErrStorageConflict.

Usage:

	svc := ledger.NewService(repo, cache, ledger.Config{}, metrics)

	// Credit an earning when an order is delivered
	wallet, err := svc.Credit(ctx, earnerID, models.EarnerTypeDeliveryPartner,
	    fee, "Earning for order #A1", orderID, models.ReferenceTypeOrder)

	// Corrective adjustment (signed amount)
	wallet, err = svc.Adjust(ctx, earnerID, earnerType, amount, "chargeback")

Debits are not exposed as a standalone operation: the only consumer is the
withdrawal workflow, which calls DebitWithin inside its own transaction so
the request transition and the ledger entry commit atomically.
*/
package ledger
