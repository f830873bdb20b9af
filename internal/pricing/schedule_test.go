package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForDayBoundaries(t *testing.T) {
	assert.Equal(t, DayConfig{}, ForDay(0), "before sale start")
	assert.Equal(t, DayConfig{}, ForDay(-5))

	last := ForDay(TotalDays)
	assert.Equal(t, last, ForDay(TotalDays+1), "past schedule clamps to last entry")
	assert.Equal(t, last, ForDay(10_000))
}

func TestForDayFirstAndLast(t *testing.T) {
	first := ForDay(1)
	assert.Equal(t, uint64(1_000_000), first.PriceUSD) // $0.0010
	assert.Equal(t, uint8(50), first.TGE)
	assert.Equal(t, uint64(30_000_000)*TokenDecimals, first.DailyCap)

	last := ForDay(TotalDays)
	assert.Equal(t, uint64(7_910_000), last.PriceUSD) // $0.00791
	assert.Equal(t, uint8(36), last.TGE)
	assert.Equal(t, uint64(2_000_000)*TokenDecimals, last.DailyCap)
}

func TestScheduleMonotonic(t *testing.T) {
	prev := ForDay(1)
	for day := 2; day <= TotalDays; day++ {
		cur := ForDay(day)
		require.GreaterOrEqual(t, cur.PriceUSD, prev.PriceUSD, "price must never decrease at day %d", day)
		require.LessOrEqual(t, cur.TGE, prev.TGE, "tge must never increase at day %d", day)
		require.LessOrEqual(t, cur.DailyCap, prev.DailyCap, "cap must never increase at day %d", day)
		require.NotZero(t, cur.PriceUSD)
		prev = cur
	}
}

func TestCurrentDay(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"start date is day 1", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), 1},
		{"next day", time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC), 2},
		{"before start", time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC), -1},
		{"day before start", time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC), 0},
		{"end of schedule", time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC), 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentDay(start, tt.now))
		})
	}
}

func TestTokenAmount(t *testing.T) {
	// $50 at day-1 price $0.0010 buys 50,000 tokens.
	got := TokenAmount(USDToMicro(50), ForDay(1).PriceUSD)
	assert.Equal(t, uint64(50_000)*TokenDecimals, got)

	// Zero price (sale not started) yields zero tokens.
	assert.Zero(t, TokenAmount(USDToMicro(50), 0))

	// Large amounts must not overflow.
	got = TokenAmount(USDToMicro(1_000_000), ForDay(1).PriceUSD)
	assert.Equal(t, uint64(1_000_000_000)*TokenDecimals, got)
}

func TestUSDToMicro(t *testing.T) {
	assert.Equal(t, uint64(50_000_000), USDToMicro(50))
	assert.Equal(t, uint64(1_990_000), USDToMicro(1.99))
	assert.Equal(t, uint64(10_010_000), USDToMicro(10.01))
}
