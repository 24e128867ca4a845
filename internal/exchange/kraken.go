package exchange

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

type krakenExchange struct {
	client *resty.Client
}

func newKraken() (Exchange, error) {
	return &krakenExchange{
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetBaseURL("https://api.kraken.com"),
	}, nil
}

func (k *krakenExchange) Name() string {
	return "kraken"
}

// krakenSymbol converts "BTC/USDT" to the venue altname "XBTUSDT". Kraken
// lists bitcoin under its XBT code.
func krakenSymbol(pair string) string {
	p := strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
	return strings.ReplaceAll(p, "BTC", "XBT")
}

type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (k *krakenExchange) call(ctx context.Context, path string, params map[string]string, result interface{}) error {
	var out krakenResponse
	resp, err := k.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(path)
	if err != nil {
		return errors.Wrapf(err, "kraken request %s", path)
	}
	if resp.IsError() {
		return errors.Errorf("kraken responded %s to %s", resp.Status(), path)
	}
	if len(out.Error) > 0 {
		return errors.Errorf("kraken error: %s", strings.Join(out.Error, ", "))
	}
	return errors.Wrap(json.Unmarshal(out.Result, result), "failed to decode kraken result")
}

func (k *krakenExchange) Candles(ctx context.Context, pair string, limit int) ([]types.Candle, error) {
	since := time.Now().Add(-time.Duration(limit) * CandleInterval)

	var result map[string]json.RawMessage
	err := k.call(ctx, "/0/public/OHLC", map[string]string{
		"pair":     krakenSymbol(pair),
		"interval": "5",
		"since":    strconv.FormatInt(since.Unix(), 10),
	}, &result)
	if err != nil {
		return nil, err
	}

	var candles []types.Candle
	for key, raw := range result {
		if key == "last" {
			continue
		}

		// Rows are [time, open, high, low, close, vwap, volume, count]
		// with numeric strings for everything but the timestamp.
		var rows [][]interface{}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, errors.Wrapf(err, "failed to decode kraken OHLC rows for %s", pair)
		}
		for _, row := range rows {
			if len(row) < 8 {
				continue
			}
			candles = append(candles, types.Candle{
				OpenTime: time.Unix(int64(toFloat(row[0])), 0),
				Open:     toFloat(row[1]),
				High:     toFloat(row[2]),
				Low:      toFloat(row[3]),
				Close:    toFloat(row[4]),
				Volume:   toFloat(row[6]),
			})
		}
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (k *krakenExchange) TickerPrice(ctx context.Context, pair string) (float64, error) {
	var result map[string]struct {
		Close []string `json:"c"`
	}
	err := k.call(ctx, "/0/public/Ticker", map[string]string{"pair": krakenSymbol(pair)}, &result)
	if err != nil {
		return 0, err
	}

	for _, ticker := range result {
		if len(ticker.Close) == 0 {
			break
		}
		return strconv.ParseFloat(ticker.Close[0], 64)
	}
	return 0, errors.Errorf("kraken has no ticker for %s", pair)
}

func (k *krakenExchange) HasPair(ctx context.Context, pair string) (bool, error) {
	var result map[string]json.RawMessage
	err := k.call(ctx, "/0/public/AssetPairs", map[string]string{"pair": krakenSymbol(pair)}, &result)
	if err != nil {
		if strings.Contains(err.Error(), "Unknown asset pair") {
			return false, nil
		}
		return false, err
	}
	return len(result) > 0, nil
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	}
	return 0
}
