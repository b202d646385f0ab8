package audithook

// Action constants for audit events.
const (
	// Customer actions
	ActionCustomerCreated = "customer.created"
	ActionCustomerUpdated = "customer.updated"
	ActionCustomerDeleted = "customer.deleted"

	// Bill actions
	ActionBillCreated  = "bill.created"
	ActionBillApproved = "bill.approved"
	ActionBillPaid     = "bill.paid"

	// Payment actions
	ActionPaymentFailed = "payment.failed"

	// Reading actions
	ActionReadingRejected = "reading.rejected"
	ActionBulkProcessed   = "bulk.processed"

	// Notification actions
	ActionReminderSent = "reminder.sent"
)

// Resource constants for audit events.
const (
	ResourceCustomer = "customer"
	ResourceBill     = "bill"
	ResourceReading  = "reading"
	ResourceReminder = "reminder"
)

// Category constants for audit events.
const (
	CategoryBilling      = "billing"
	CategoryPayment      = "payment"
	CategoryMetering     = "metering"
	CategoryNotification = "notification"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
