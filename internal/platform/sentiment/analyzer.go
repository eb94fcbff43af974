package sentiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// tweetCount is how many recent tweets feed one scoring round.
const tweetCount = 10

// searcher matches DaturaClient.
type searcher interface {
	SearchTweets(ctx context.Context, query string, count int) ([]string, error)
}

// scorer matches ChutesClient.
type scorer interface {
	ScoreTweets(ctx context.Context, tweets []string) (int, error)
}

// Analyzer combines tweet search and LLM scoring into a single sentiment
// source. Raw model scores in [-100, 100] are normalized to [-10, 10].
type Analyzer struct {
	search searcher
	score  scorer
	logger *slog.Logger
}

// NewAnalyzer creates a sentiment analyzer from the given search and
// scoring backends.
func NewAnalyzer(search searcher, score scorer, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		search: search,
		score:  score,
		logger: logger.With(slog.String("component", "sentiment")),
	}
}

// Score returns the normalized sentiment score for the topic. A topic with
// no recent tweets scores 0. Backend failures are reported as
// domain.ErrSentimentUnavailable.
func (a *Analyzer) Score(ctx context.Context, topic string) (float64, error) {
	tweets, err := a.search.SearchTweets(ctx, topic, tweetCount)
	if err != nil {
		return 0, fmt.Errorf("sentiment: search %q: %w: %w", topic, domain.ErrSentimentUnavailable, err)
	}
	if len(tweets) == 0 {
		a.logger.Info("no tweets found, scoring neutral", slog.String("topic", topic))
		return 0, nil
	}

	raw, err := a.score.ScoreTweets(ctx, tweets)
	if err != nil {
		return 0, fmt.Errorf("sentiment: score %q: %w: %w", topic, domain.ErrSentimentUnavailable, err)
	}

	normalized := float64(raw) / 10
	a.logger.Info("scored topic",
		slog.String("topic", topic),
		slog.Int("tweets", len(tweets)),
		slog.Int("raw_score", raw),
		slog.Float64("score", normalized),
	)
	return normalized, nil
}

// Compile-time interface check.
var _ domain.SentimentSource = (*Analyzer)(nil)
