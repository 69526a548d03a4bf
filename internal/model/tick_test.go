package model

import (
	"errors"
	"testing"
	"time"
)

func validRaw() RawTick {
	return RawTick{
		Symbol: "ITSA3",
		Time:   1705320000000, // 2024-01-15T12:00:00Z
		Bid:    8.51,
		Ask:    8.53,
		Last:   8.52,
		Volume: 100,
	}
}

func TestNewTick_Valid(t *testing.T) {
	tick, err := NewTick(validRaw())
	if err != nil {
		t.Fatalf("NewTick() error = %v", err)
	}

	if tick.Symbol != "ITSA3" {
		t.Errorf("Symbol = %s, want ITSA3", tick.Symbol)
	}
	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !tick.TS.Equal(want) {
		t.Errorf("TS = %v, want %v", tick.TS, want)
	}
	if tick.TS.Location() != time.UTC {
		t.Errorf("TS location = %v, want UTC", tick.TS.Location())
	}
	if tick.Bid != 8.51 || tick.Ask != 8.53 || tick.Last != 8.52 {
		t.Errorf("prices = %v/%v/%v, want 8.51/8.53/8.52", tick.Bid, tick.Ask, tick.Last)
	}
	if tick.Volume != 100 {
		t.Errorf("Volume = %d, want 100", tick.Volume)
	}
}

func TestNewTick_NormalizesSymbol(t *testing.T) {
	raw := validRaw()
	raw.Symbol = "  itsa3 "

	tick, err := NewTick(raw)
	if err != nil {
		t.Fatalf("NewTick() error = %v", err)
	}
	if tick.Symbol != "ITSA3" {
		t.Errorf("Symbol = %q, want ITSA3", tick.Symbol)
	}
}

func TestNewTick_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RawTick)
		wantErr error
	}{
		{"empty symbol", func(r *RawTick) { r.Symbol = "" }, ErrEmptySymbol},
		{"whitespace symbol", func(r *RawTick) { r.Symbol = "   " }, ErrEmptySymbol},
		{"zero timestamp", func(r *RawTick) { r.Time = 0 }, ErrZeroTimestamp},
		{"negative timestamp", func(r *RawTick) { r.Time = -5 }, ErrZeroTimestamp},
		{"negative bid", func(r *RawTick) { r.Bid = -0.01 }, ErrNegativePrice},
		{"negative ask", func(r *RawTick) { r.Ask = -1 }, ErrNegativePrice},
		{"negative last", func(r *RawTick) { r.Last = -1 }, ErrNegativePrice},
		{"negative volume", func(r *RawTick) { r.Volume = -1 }, ErrNegativeVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			_, err := NewTick(raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTick() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewTick_CrossedQuoteStoredAsIs(t *testing.T) {
	raw := validRaw()
	raw.Bid = 8.55
	raw.Ask = 8.50 // crossed

	tick, err := NewTick(raw)
	if err != nil {
		t.Fatalf("NewTick() error = %v, crossed quotes must be accepted", err)
	}
	if tick.Bid != 8.55 || tick.Ask != 8.50 {
		t.Errorf("crossed quote altered: bid=%v ask=%v", tick.Bid, tick.Ask)
	}
}

func TestNewTick_ZeroVolumeAndLastAllowed(t *testing.T) {
	raw := validRaw()
	raw.Volume = 0
	raw.Last = 0

	if _, err := NewTick(raw); err != nil {
		t.Fatalf("NewTick() error = %v, zero volume/last must be accepted", err)
	}
}

func TestTick_Key(t *testing.T) {
	tick, err := NewTick(validRaw())
	if err != nil {
		t.Fatalf("NewTick() error = %v", err)
	}

	other := tick
	if tick.Key() != other.Key() {
		t.Errorf("identical ticks produced different keys")
	}

	later := validRaw()
	later.Time += 1000
	tick2, _ := NewTick(later)
	if tick.Key() == tick2.Key() {
		t.Errorf("ticks with different timestamps share key %q", tick.Key())
	}
}
