package domain

import "context"

// Ledger is the chain client contract. TaoDividends queries the current
// dividend metric for a (subnet, hotkey) pair; AddStake and RemoveStake
// submit stake extrinsics sized in TAO. Every call must be bounded by the
// context deadline.
type Ledger interface {
	TaoDividends(ctx context.Context, netuid int, hotkey string) (float64, error)
	AddStake(ctx context.Context, netuid int, hotkey string, amountTao float64) (txRef string, err error)
	RemoveStake(ctx context.Context, netuid int, hotkey string, amountTao float64) (txRef string, err error)
}

// SentimentSource produces a signed sentiment score in [-10, 10] for a
// topic. Zero means neutral (including "no data").
type SentimentSource interface {
	Score(ctx context.Context, topic string) (float64, error)
}
