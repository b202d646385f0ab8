// Package metrics defines read-only aggregates for the admin dashboard.
package metrics

import "github.com/dee-mee/aquatrack/types"

// DashboardStats summarizes the ledger for the admin landing page.
type DashboardStats struct {
	TotalCustomers       int64       `json:"total_customers"`
	BillsAwaitingPayment int64       `json:"bills_awaiting_payment"`
	TotalOutstanding     types.Money `json:"total_outstanding"`
}

// MeterMetric is per-meter lifetime consumption, for usage analytics.
type MeterMetric struct {
	MeterNumber           string `json:"meter_number"`
	CustomerName          string `json:"customer_name"`
	CustomerAccountNumber string `json:"customer_account_number"`
	TotalConsumption      int64  `json:"total_consumption"`
}
