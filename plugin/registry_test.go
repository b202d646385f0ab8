package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/reading"
)

type recordingPlugin struct {
	name          string
	billsCreated  int
	billsPaid     int
	bulkProcessed int
	failErr       error
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnBillCreated(_ context.Context, _ *bill.Bill) error {
	p.billsCreated++
	return p.failErr
}

func (p *recordingPlugin) OnBillPaid(_ context.Context, _ *bill.Bill) error {
	p.billsPaid++
	return nil
}

func (p *recordingPlugin) OnBulkProcessed(_ context.Context, _ *reading.BulkResult) error {
	p.bulkProcessed++
	return nil
}

type namedOnly struct{ name string }

func (p *namedOnly) Name() string { return p.name }

type lifecyclePlugin struct{ name string }

func (p *lifecyclePlugin) Name() string { return p.name }

func (p *lifecyclePlugin) OnCustomerUpdated(_ context.Context, _ *customer.Customer) error {
	return nil
}

func (p *lifecyclePlugin) OnPaymentFailed(_ context.Context, _, _ string) error {
	return nil
}

func (p *lifecyclePlugin) OnReadingRejected(_ context.Context, _ string, _ int64, _ string) error {
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	r := NewRegistry()
	p := &recordingPlugin{name: "recorder"}
	require.NoError(t, r.Register(p))
	require.NoError(t, r.Register(&namedOnly{name: "bystander"}))

	assert.Equal(t, 2, r.Count())
	assert.Same(t, p, r.Get("recorder").(*recordingPlugin))
	assert.Nil(t, r.Get("missing"))

	ctx := context.Background()
	b := &bill.Bill{ID: id.NewBillID()}
	r.EmitBillCreated(ctx, b)
	r.EmitBillCreated(ctx, b)
	r.EmitBillPaid(ctx, b)
	r.EmitBulkProcessed(ctx, &reading.BulkResult{SuccessCount: 1})

	// Hooks the plugin does not implement are simply skipped.
	r.EmitBillApproved(ctx, b)

	assert.Equal(t, 2, p.billsCreated)
	assert.Equal(t, 1, p.billsPaid)
	assert.Equal(t, 1, p.bulkProcessed)
}

func TestImplementedInterfacesReported(t *testing.T) {
	r := NewRegistry()

	assert.ElementsMatch(t,
		[]string{"OnBillCreated", "OnBillPaid", "OnBulkProcessed"},
		r.getImplementedInterfaces(&recordingPlugin{name: "recorder"}))

	assert.ElementsMatch(t,
		[]string{"OnCustomerUpdated", "OnPaymentFailed", "OnReadingRejected"},
		r.getImplementedInterfaces(&lifecyclePlugin{name: "lifecycle"}))

	assert.Empty(t, r.getImplementedInterfaces(&namedOnly{name: "bystander"}))
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&namedOnly{name: "one"}))

	err := r.Register(&namedOnly{name: "one"})
	assert.ErrorContains(t, err, "duplicate registration")
}

func TestEmitSurvivesPluginError(t *testing.T) {
	r := NewRegistry()
	failing := &recordingPlugin{name: "failing", failErr: errors.New("boom")}
	healthy := &recordingPlugin{name: "healthy"}
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(healthy))

	r.EmitBillCreated(context.Background(), &bill.Bill{ID: id.NewBillID()})

	// The failing plugin does not stop dispatch to the rest.
	assert.Equal(t, 1, failing.billsCreated)
	assert.Equal(t, 1, healthy.billsCreated)
}

func TestList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&namedOnly{name: "a"}))
	require.NoError(t, r.Register(&namedOnly{name: "b"}))

	names := make([]string, 0, 2)
	for _, p := range r.List() {
		names = append(names, p.Name())
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}
