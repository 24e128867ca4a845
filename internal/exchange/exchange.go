package exchange

import (
	"context"
	"time"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

// CandleInterval is the evaluation granularity. Alerts are checked against
// the most recent completed interval of this length.
const CandleInterval = 5 * time.Minute

// Exchange is a market data provider for one venue.
type Exchange interface {
	Name() string
	// Candles returns up to limit most recent CandleInterval candles for the
	// canonical "BASE/QUOTE" pair, oldest first. An empty slice means the
	// venue had no data for the window.
	Candles(ctx context.Context, pair string, limit int) ([]types.Candle, error)
	// TickerPrice returns the last traded price for the pair.
	TickerPrice(ctx context.Context, pair string) (float64, error)
	// HasPair reports whether the venue lists the pair.
	HasPair(ctx context.Context, pair string) (bool, error)
}
