package audithook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/reading"
	"github.com/dee-mee/aquatrack/types"
)

func capture(events *[]*AuditEvent) Recorder {
	return RecorderFunc(func(_ context.Context, e *AuditEvent) error {
		*events = append(*events, e)
		return nil
	})
}

func TestOnBillPaidRecordsEvent(t *testing.T) {
	var events []*AuditEvent
	e := New(capture(&events))

	b := &bill.Bill{
		ID:         id.NewBillID(),
		CustomerID: id.NewCustomerID(),
		AmountDue:  types.KES(9750),
		PaymentRef: "MM-123",
	}
	require.NoError(t, e.OnBillPaid(context.Background(), b))

	require.Len(t, events, 1)
	evt := events[0]
	assert.Equal(t, ActionBillPaid, evt.Action)
	assert.Equal(t, ResourceBill, evt.Resource)
	assert.Equal(t, CategoryPayment, evt.Category)
	assert.Equal(t, b.ID.String(), evt.ResourceID)
	assert.Equal(t, OutcomeSuccess, evt.Outcome)
	assert.Equal(t, "MM-123", evt.Metadata["payment_ref"])
	assert.Equal(t, "KES 97.50", evt.Metadata["amount"])
}

func TestOnBulkProcessedOutcome(t *testing.T) {
	tests := []struct {
		name    string
		result  reading.BulkResult
		outcome string
	}{
		{"all succeeded", reading.BulkResult{SuccessCount: 3}, OutcomeSuccess},
		{"mixed", reading.BulkResult{SuccessCount: 2, ErrorCount: 1}, OutcomePartial},
		{"all failed", reading.BulkResult{ErrorCount: 2}, OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []*AuditEvent
			e := New(capture(&events))

			require.NoError(t, e.OnBulkProcessed(context.Background(), &tt.result))
			require.Len(t, events, 1)
			assert.Equal(t, tt.outcome, events[0].Outcome)
		})
	}
}

func TestDisabledActionsSkipped(t *testing.T) {
	var events []*AuditEvent
	e := New(capture(&events), WithDisabledActions(ActionReadingRejected))

	require.NoError(t, e.OnReadingRejected(context.Background(), "AT-001", 1150, "not monotonic"))
	assert.Empty(t, events)

	require.NoError(t, e.OnPaymentFailed(context.Background(), "bill_x", "declined"))
	require.Len(t, events, 1)
	assert.Equal(t, ActionPaymentFailed, events[0].Action)
	assert.Equal(t, OutcomeFailure, events[0].Outcome)
}

func TestEnabledActionsOnly(t *testing.T) {
	var events []*AuditEvent
	e := New(capture(&events), WithEnabledActions(ActionBillApproved))

	b := &bill.Bill{ID: id.NewBillID(), CustomerID: id.NewCustomerID(), AmountDue: types.KES(100)}
	require.NoError(t, e.OnBillCreated(context.Background(), b))
	require.NoError(t, e.OnBillApproved(context.Background(), b))

	require.Len(t, events, 1)
	assert.Equal(t, ActionBillApproved, events[0].Action)
}
