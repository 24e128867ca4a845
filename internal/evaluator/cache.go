package evaluator

import (
	"context"
	"strings"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/exchange"
	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

type fetchResult struct {
	candle *types.Candle
	err    error
}

// candleCache memoizes candle fetches for one evaluation run so that many
// alerts watching the same (exchange, pair) cost a single provider call.
// It is created fresh per run and discarded with it.
type candleCache struct {
	results map[string]fetchResult
}

func newCandleCache() *candleCache {
	return &candleCache{results: make(map[string]fetchResult)}
}

// recentCandle returns the most recent completed candle for the pair, nil
// when the provider had no data. Errors are memoized too: a failing fetch is
// not retried within the same run.
func (c *candleCache) recentCandle(ctx context.Context, ex exchange.Exchange, pair string) (*types.Candle, error) {
	key := strings.ToLower(ex.Name()) + pair
	if result, ok := c.results[key]; ok {
		return result.candle, result.err
	}

	candles, err := ex.Candles(ctx, pair, 1)
	result := fetchResult{err: err}
	if err == nil && len(candles) > 0 {
		result.candle = &candles[len(candles)-1]
	}
	c.results[key] = result
	return result.candle, result.err
}
