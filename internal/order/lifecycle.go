package order

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/domain"
)

const (
	eventSettle = "settle"
	eventVoid   = "void"
)

// openOrder is an order held in memory while its table is open.
type openOrder struct {
	order     domain.Order
	lifecycle *fsm.FSM
}

// newLifecycle returns the state machine of one order. Orders only exist
// in memory while open, so the machine starts there.
func newLifecycle(table string, logger *zap.Logger) *fsm.FSM {
	return fsm.NewFSM(
		string(domain.StatusOpen),
		fsm.Events{
			{Name: eventSettle, Src: []string{string(domain.StatusOpen)}, Dst: string(domain.StatusPaid)},
			{Name: eventVoid, Src: []string{string(domain.StatusOpen)}, Dst: string(domain.StatusVoid)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("order state changed",
					zap.String("table", table),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)
}

func newOpenOrder(o domain.Order, logger *zap.Logger) *openOrder {
	return &openOrder{order: o, lifecycle: newLifecycle(o.TableCode, logger)}
}

// finish moves the order to its terminal state. The store has already
// committed the transition, so a refusal here is only logged.
func (o *openOrder) finish(ctx context.Context, event string, logger *zap.Logger) {
	if err := o.lifecycle.Event(ctx, event); err != nil {
		logger.Warn("order lifecycle rejected event",
			zap.String("table", o.order.TableCode),
			zap.String("event", event),
			zap.Error(err))
		return
	}
	o.order.Status = domain.OrderStatus(o.lifecycle.Current())
}

func (o *openOrder) totals() domain.Totals {
	return domain.ComputeTotals(o.order.Items, o.order.DiscountCents)
}
