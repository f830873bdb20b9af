package pricing

import (
	"math"
	"math/big"
	"time"
)

// On-chain fixed-point precision. Prices are stored as USD × 10^9 and token
// amounts in smallest units (10^9 per whole token). Floating point appears
// only at the display boundary, never in settlement math.
const (
	PricePrecision = 1_000_000_000
	TokenDecimals  = 1_000_000_000

	// TotalDays is the length of the presale schedule.
	TotalDays = 150

	// ListingPriceUSD is the expected exchange listing price, display only.
	ListingPriceUSD = 0.012

	// USDPrecision scales USD amounts passed to the on-chain program (micro-dollars).
	USDPrecision = 1_000_000
)

// DayConfig is one immutable pricing tier entry.
type DayConfig struct {
	PriceUSD uint64 // USD price × 10^9
	TGE      uint8  // unlock percentage at token generation event
	DailyCap uint64 // daily token cap in smallest units
}

// p converts a human USD price to its on-chain u64 representation.
func p(usd float64) uint64 {
	return uint64(math.Round(usd * PricePrecision))
}

// c converts a whole-token cap to smallest units.
func c(tokens uint64) uint64 {
	return tokens * TokenDecimals
}

// stage describes ten consecutive days sharing a TGE percentage and cap.
type stage struct {
	prices [10]float64
	tge    uint8
	cap    uint64
}

// Derived from the presale batches spreadsheet: 15 ten-day stages with a
// strictly non-decreasing price, TGE falling 50% → 36% and the daily cap
// falling 30M → 2M tokens.
var stages = [15]stage{
	{[10]float64{0.0010, 0.00102, 0.00104, 0.00105, 0.00107, 0.00109, 0.00111, 0.00113, 0.00115, 0.00117}, 50, 30_000_000},
	{[10]float64{0.00119, 0.00121, 0.00123, 0.00125, 0.00127, 0.00129, 0.00132, 0.00134, 0.00136, 0.00138}, 49, 28_000_000},
	{[10]float64{0.00141, 0.00143, 0.00145, 0.00148, 0.00150, 0.00153, 0.00155, 0.00158, 0.00160, 0.00163}, 48, 26_000_000},
	{[10]float64{0.00166, 0.00168, 0.00171, 0.00174, 0.00176, 0.00179, 0.00182, 0.00185, 0.00188, 0.00191}, 47, 24_000_000},
	{[10]float64{0.00194, 0.00197, 0.00200, 0.00203, 0.00206, 0.00209, 0.00213, 0.00216, 0.00219, 0.00223}, 46, 22_000_000},
	{[10]float64{0.00226, 0.00229, 0.00233, 0.00236, 0.00240, 0.00244, 0.00247, 0.00251, 0.00255, 0.00259}, 45, 20_000_000},
	{[10]float64{0.00262, 0.00266, 0.00270, 0.00274, 0.00278, 0.00282, 0.00286, 0.00290, 0.00294, 0.00299}, 44, 18_000_000},
	{[10]float64{0.00303, 0.00307, 0.00311, 0.00316, 0.00320, 0.00325, 0.00329, 0.00334, 0.00338, 0.00343}, 43, 16_000_000},
	{[10]float64{0.00348, 0.00352, 0.00357, 0.00362, 0.00367, 0.00372, 0.00377, 0.00382, 0.00387, 0.00392}, 42, 14_000_000},
	{[10]float64{0.00397, 0.00403, 0.00408, 0.00413, 0.00418, 0.00424, 0.00429, 0.00435, 0.00441, 0.00446}, 41, 12_000_000},
	{[10]float64{0.00452, 0.00458, 0.00463, 0.00469, 0.00475, 0.00481, 0.00487, 0.00493, 0.00499, 0.00505}, 40, 10_000_000},
	{[10]float64{0.00512, 0.00518, 0.00524, 0.00530, 0.00537, 0.00543, 0.00549, 0.00556, 0.00563, 0.00569}, 39, 8_000_000},
	{[10]float64{0.00576, 0.00583, 0.00589, 0.00596, 0.00603, 0.00610, 0.00617, 0.00624, 0.00631, 0.00638}, 38, 6_000_000},
	{[10]float64{0.00645, 0.00653, 0.00660, 0.00667, 0.00674, 0.00682, 0.00689, 0.00697, 0.00705, 0.00712}, 37, 4_000_000},
	{[10]float64{0.00720, 0.00727, 0.00735, 0.00743, 0.00750, 0.00758, 0.00766, 0.00774, 0.00782, 0.00791}, 36, 2_000_000},
}

// schedule is the expanded day-indexed table, built once at process start.
var schedule = buildSchedule()

func buildSchedule() [TotalDays + 1]DayConfig {
	var table [TotalDays + 1]DayConfig
	day := 1
	for _, s := range stages {
		for _, price := range s.prices {
			table[day] = DayConfig{PriceUSD: p(price), TGE: s.tge, DailyCap: c(s.cap)}
			day++
		}
	}
	return table
}

// ForDay returns the pricing tier for a presale day. Day < 1 yields the zero
// sentinel (sale not started); days past the schedule clamp to the final tier
// with the price frozen.
func ForDay(day int) DayConfig {
	if day < 1 {
		return DayConfig{}
	}
	if day > TotalDays {
		return schedule[TotalDays]
	}
	return schedule[day]
}

// CurrentDay computes the 1-based presale day: the configured start date is
// day 1. Dates are compared in UTC.
func CurrentDay(start time.Time, now time.Time) int {
	startDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	nowUTC := now.UTC()
	nowDate := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	return int(nowDate.Sub(startDate).Hours()/24) + 1
}

// CurrentConfig returns today's pricing tier for the given start date.
func CurrentConfig(start time.Time, now time.Time) DayConfig {
	return ForDay(CurrentDay(start, now))
}

// TokenAmount converts a USD amount in micro-dollars to the token amount in
// smallest units at the given on-chain price. Returns 0 when the price is 0
// (sale not started). Intermediate math uses big.Int as the product exceeds
// 64 bits for routine purchase sizes.
func TokenAmount(usdMicro uint64, priceUSD uint64) uint64 {
	if priceUSD == 0 {
		return 0
	}
	// tokens = usd / price, both sides carried in fixed point:
	// (usdMicro / 10^6) / (priceUSD / 10^9) * 10^9 = usdMicro * 10^12 / priceUSD
	n := new(big.Int).SetUint64(usdMicro)
	n.Mul(n, big.NewInt(1_000_000_000_000))
	n.Div(n, new(big.Int).SetUint64(priceUSD))
	return n.Uint64()
}

// USDToMicro converts a human-facing USD amount to micro-dollars for
// settlement. This is the only place a float crosses into settlement math.
func USDToMicro(usd float64) uint64 {
	return uint64(math.Round(usd * USDPrecision))
}
