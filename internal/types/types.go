package types

import (
	"strings"
	"time"
)

// AlertTypePrice is the only alert kind currently supported. The value is
// part of the persisted record shape and must not change.
const AlertTypePrice = "Price alert"

const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

type Alert struct {
	ID        int64   `json:"id"`
	ChatID    string  `json:"chat_id"`
	Type      string  `json:"type"`
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Direction string  `json:"direction"`
	Exchange  string  `json:"exchange"`
	CreatedAt string  `json:"created_at"`
}

// Candle is one OHLCV interval as returned by an exchange.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// SplitPair splits a canonical "BASE/QUOTE" pair. A pair without a slash
// comes back as (pair, "").
func SplitPair(pair string) (string, string) {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) < 2 {
		return pair, ""
	}
	return parts[0], parts[1]
}
