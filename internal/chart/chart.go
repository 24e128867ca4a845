package chart

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/gilsonmandalogo/crypto-alert-telegram-bot/internal/types"
)

// RenderCloses draws the close price of each candle as a PNG time series.
func RenderCloses(pair string, candles []types.Candle) ([]byte, error) {
	if len(candles) < 2 {
		return nil, errors.Errorf("not enough candle data to render %s", pair)
	}

	xs := make([]time.Time, 0, len(candles))
	ys := make([]float64, 0, len(candles))
	for _, candle := range candles {
		xs = append(xs, candle.OpenTime)
		ys = append(ys, candle.Close)
	}

	graph := gochart.Chart{
		Width:  800,
		Height: 400,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04"),
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    pair,
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrapf(err, "failed to render chart for %s", pair)
	}
	return buf.Bytes(), nil
}
