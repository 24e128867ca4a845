package exchange

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

type binanceExchange struct {
	client *binance.Client
}

func newBinance() (Exchange, error) {
	// Public market data endpoints need no credentials.
	return &binanceExchange{client: binance.NewClient("", "")}, nil
}

func (b *binanceExchange) Name() string {
	return "binance"
}

// binanceSymbol converts "BTC/USDT" to the venue form "BTCUSDT".
func binanceSymbol(pair string) string {
	return strings.ReplaceAll(strings.ToUpper(pair), "/", "")
}

func (b *binanceExchange) Candles(ctx context.Context, pair string, limit int) ([]types.Candle, error) {
	start := time.Now().Add(-time.Duration(limit) * CandleInterval)

	klines, err := b.client.NewKlinesService().
		Symbol(binanceSymbol(pair)).
		Interval("5m").
		StartTime(start.UnixMilli()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "binance klines for %s", pair)
	}

	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, types.Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     parseFloatOrZero(k.Open),
			High:     parseFloatOrZero(k.High),
			Low:      parseFloatOrZero(k.Low),
			Close:    parseFloatOrZero(k.Close),
			Volume:   parseFloatOrZero(k.Volume),
		})
	}
	return candles, nil
}

func (b *binanceExchange) TickerPrice(ctx context.Context, pair string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(binanceSymbol(pair)).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "binance ticker for %s", pair)
	}
	if len(prices) == 0 {
		return 0, errors.Errorf("binance has no ticker for %s", pair)
	}
	return strconv.ParseFloat(prices[0].Price, 64)
}

func (b *binanceExchange) HasPair(ctx context.Context, pair string) (bool, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(binanceSymbol(pair)).Do(ctx)
	if err != nil {
		if isUnknownSymbol(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "binance exchange info for %s", pair)
	}
	return len(info.Symbols) > 0, nil
}

// isUnknownSymbol matches the API error binance answers for symbols it does
// not list. Any other failure is retryable and must not read as "not
// listed".
func isUnknownSymbol(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr) && apiErr.Code == -1121
}

func parseFloatOrZero(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
