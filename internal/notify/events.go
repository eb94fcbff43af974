package notify

import (
	"context"
	"fmt"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// Event types emitted by the service.
const (
	EventTradeExecuted     = "trade_executed"
	EventTradeFailed       = "trade_failed"
	EventLedgerUnavailable = "ledger_unavailable"
)

// TradeEvents adapts the Notifier to the trade lifecycle hooks the trader
// calls. Delivery errors are already logged by the Notifier and are not
// allowed to affect job outcomes.
type TradeEvents struct {
	notifier *Notifier
}

// NewTradeEvents wraps a Notifier.
func NewTradeEvents(notifier *Notifier) *TradeEvents {
	return &TradeEvents{notifier: notifier}
}

// TradeExecuted reports a trade job that reached the succeeded state.
func (e *TradeEvents) TradeExecuted(ctx context.Context, job domain.TradeJob) {
	var detail string
	switch job.Operation {
	case domain.OpNone:
		detail = "neutral sentiment, no ledger action"
	default:
		delta := 0.0
		if job.StakeDelta != nil {
			delta = *job.StakeDelta
		}
		detail = fmt.Sprintf("%s of %.4f TAO (tx %s)", job.Operation, abs(delta), job.TxRef)
	}

	_ = e.notifier.Notify(ctx, EventTradeExecuted,
		"Trade executed",
		fmt.Sprintf("job %s: netuid %d, hotkey %s: %s", job.ID, job.NetUID, job.Hotkey, detail),
	)
}

// TradeFailed reports a trade job that reached the failed state.
func (e *TradeEvents) TradeFailed(ctx context.Context, job domain.TradeJob) {
	_ = e.notifier.Notify(ctx, EventTradeFailed,
		"Trade failed",
		fmt.Sprintf("job %s: netuid %d, hotkey %s: %s", job.ID, job.NetUID, job.Hotkey, job.Error),
	)
}

// LedgerUnavailable reports a resolution where both ledger attempts failed.
func (e *TradeEvents) LedgerUnavailable(ctx context.Context, netuid int, hotkey string, err error) {
	_ = e.notifier.Notify(ctx, EventLedgerUnavailable,
		"Ledger unavailable",
		fmt.Sprintf("netuid %d, hotkey %s: %v", netuid, hotkey, err),
	)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
