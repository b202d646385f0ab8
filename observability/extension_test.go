package observability

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

type fakeCounter struct{ value float64 }

func (c *fakeCounter) Inc()          { c.value++ }
func (c *fakeCounter) Add(v float64) { c.value += v }

type fakeHistogram struct{ observed []float64 }

func (h *fakeHistogram) Observe(v float64) { h.observed = append(h.observed, v) }

type fakeFactory struct {
	counters   map[string]*fakeCounter
	histograms map[string]*fakeHistogram
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		counters:   make(map[string]*fakeCounter),
		histograms: make(map[string]*fakeHistogram),
	}
}

func (f *fakeFactory) Counter(name string) Counter {
	c := &fakeCounter{}
	f.counters[name] = c
	return c
}

func (f *fakeFactory) Histogram(name string) Histogram {
	h := &fakeHistogram{}
	f.histograms[name] = h
	return h
}

func TestBillLifecycleMetrics(t *testing.T) {
	factory := newFakeFactory()
	m := NewMetricsExtension(factory)
	ctx := context.Background()

	b := &bill.Bill{
		ID:          id.NewBillID(),
		Consumption: 65,
		AmountDue:   types.KES(9750),
	}
	require.NoError(t, m.OnBillCreated(ctx, b))
	require.NoError(t, m.OnBillApproved(ctx, b))
	require.NoError(t, m.OnBillPaid(ctx, b))

	assert.Equal(t, float64(1), factory.counters["aquatrack.bill.created"].value)
	assert.Equal(t, float64(1), factory.counters["aquatrack.bill.approved"].value)
	assert.Equal(t, float64(1), factory.counters["aquatrack.bill.paid"].value)
	assert.Equal(t, []float64{9750}, factory.histograms["aquatrack.bill.amount_cents"].observed)
	assert.Equal(t, []float64{65}, factory.histograms["aquatrack.bill.consumption_m3"].observed)
	assert.Equal(t, []float64{9750}, factory.histograms["aquatrack.payment.collected_cents"].observed)
}

func TestBulkMetrics(t *testing.T) {
	factory := newFakeFactory()
	m := NewMetricsExtension(factory)

	require.NoError(t, m.OnBulkProcessed(context.Background(), &reading.BulkResult{
		SuccessCount: 3,
		ErrorCount:   1,
	}))

	assert.Equal(t, []float64{4}, factory.histograms["aquatrack.bulk.rows"].observed)
	assert.Equal(t, []float64{0.25}, factory.histograms["aquatrack.bulk.error_rate"].observed)
}

func TestCascadeMetrics(t *testing.T) {
	factory := newFakeFactory()
	m := NewMetricsExtension(factory)

	require.NoError(t, m.OnCustomerDeleted(context.Background(), "cust_x", 3))

	assert.Equal(t, float64(1), factory.counters["aquatrack.customer.deleted"].value)
	assert.Equal(t, float64(3), factory.counters["aquatrack.customer.bills_cascaded"].value)
}
