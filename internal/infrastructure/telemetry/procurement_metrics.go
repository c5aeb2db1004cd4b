package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("NewProcurementMetrics: meter cannot be nil")

// Metric attribute keys
var (
	AttrTransitionOutcome = attribute.Key("outcome")
	AttrFromStatus        = attribute.Key("from_status")
	AttrToStatus          = attribute.Key("to_status")
	AttrReplayResult      = attribute.Key("result")
)

// Idempotency replay results
const (
	ReplayServed   = "served"
	ReplayRejected = "rejected"
)

// ProcurementMetrics counts status transitions and received stock. A spike
// of already_received outcomes shows clients racing or retrying receipts.
type ProcurementMetrics struct {
	transitionsTotal   *Counter
	receivedUnitsTotal *Counter
	replaysTotal       *Counter
}

// NewProcurementMetrics registers the procurement instruments on meter
func NewProcurementMetrics(meter metric.Meter) (*ProcurementMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	pm := &ProcurementMetrics{}
	var err error

	pm.transitionsTotal, err = NewCounter(meter,
		"procurement_order_transitions_total",
		"Purchase order transition requests by outcome",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	pm.receivedUnitsTotal, err = NewCounter(meter,
		"procurement_stock_received_units_total",
		"Stock units added to variants by received purchase orders",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	pm.replaysTotal, err = NewCounter(meter,
		"procurement_idempotent_replays_total",
		"Transition requests answered from a stored idempotency key",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordTransition counts one transition request
func (pm *ProcurementMetrics) RecordTransition(ctx context.Context, outcome, from, to string) {
	pm.transitionsTotal.Inc(ctx,
		AttrTransitionOutcome.String(outcome),
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// RecordStockReceived adds the units reconciled by one receipt
func (pm *ProcurementMetrics) RecordStockReceived(ctx context.Context, units int64) {
	if units <= 0 {
		return
	}
	pm.receivedUnitsTotal.Add(ctx, units)
}

// RecordIdempotentReplay counts a replayed key, or one rejected because it
// was reused for another target status
func (pm *ProcurementMetrics) RecordIdempotentReplay(ctx context.Context, served bool) {
	result := ReplayServed
	if !served {
		result = ReplayRejected
	}
	pm.replaysTotal.Inc(ctx, AttrReplayResult.String(result))
}
