package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors returned by NewTick.
var (
	ErrEmptySymbol    = errors.New("tick symbol is empty")
	ErrZeroTimestamp  = errors.New("tick timestamp is zero")
	ErrNegativePrice  = errors.New("tick price is negative")
	ErrNegativeVolume = errors.New("tick volume is negative")
)

// RawTick is the loosely-typed tick payload as delivered by the terminal
// integration layer (polling or streaming callback). Field names mirror the
// MT5 symbol_info_tick structure.
type RawTick struct {
	Symbol string  `json:"symbol"`
	Time   int64   `json:"time_msc"` // Milliseconds since Unix epoch
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
	Volume int64   `json:"volume"`
}

// Tick is one validated market quote event. Immutable once constructed;
// (Symbol, TS) is the natural key used for idempotent persistence.
type Tick struct {
	Symbol string    // Instrument identifier (e.g., "ITSA3", "EURUSD")
	TS     time.Time // Source observation time, UTC
	Bid    float64   // Best bid price
	Ask    float64   // Best ask price
	Last   float64   // Last traded price, 0 if unavailable
	Volume int64     // Tick volume, 0 if unavailable
}

// NewTick validates and normalizes a raw payload into a Tick.
//
// Rejected: empty symbol, zero timestamp, negative prices or volume.
// Crossed quotes (ask < bid) and zero volume are stored as-is; filtering
// them is a downstream concern.
func NewTick(raw RawTick) (Tick, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return Tick{}, ErrEmptySymbol
	}
	if raw.Time <= 0 {
		return Tick{}, fmt.Errorf("%w: symbol=%s", ErrZeroTimestamp, symbol)
	}
	if raw.Bid < 0 || raw.Ask < 0 || raw.Last < 0 {
		return Tick{}, fmt.Errorf("%w: symbol=%s bid=%v ask=%v last=%v",
			ErrNegativePrice, symbol, raw.Bid, raw.Ask, raw.Last)
	}
	if raw.Volume < 0 {
		return Tick{}, fmt.Errorf("%w: symbol=%s volume=%d", ErrNegativeVolume, symbol, raw.Volume)
	}

	return Tick{
		Symbol: symbol,
		TS:     time.UnixMilli(raw.Time).UTC(),
		Bid:    raw.Bid,
		Ask:    raw.Ask,
		Last:   raw.Last,
		Volume: raw.Volume,
	}, nil
}

// Key returns the natural key string, useful for logging and test fakes.
func (t Tick) Key() string {
	return t.Symbol + "|" + t.TS.Format(time.RFC3339Nano)
}
