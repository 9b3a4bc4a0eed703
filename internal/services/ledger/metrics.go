package ledger

import "github.com/shopspring/decimal"

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationResult(string, string)      {}
func (n *NoopMetricsCollector) RecordError(string, string)                {}
func (n *NoopMetricsCollector) RecordTransaction(string, decimal.Decimal) {}
