// Package simulate produces reproducible synthetic price series for
// the demo and game screens. The output is display-only noise and must
// never be confused with market data.
package simulate

import "unicode/utf16"

// PathLength is the number of points in a generated chart series.
const PathLength = 30

// DefaultSeed is used when the caller supplies an empty seed string.
const DefaultSeed = "default"

// SeedFromString folds a string into a signed 32-bit seed with the
// hash = hash*31 + codeUnit recurrence over UTF-16 code units, so
// characters outside the BMP fold as a surrogate pair. Same string,
// same seed.
func SeedFromString(s string) int32 {
	var hash int32
	for _, u := range utf16.Encode([]rune(s)) {
		hash = hash*31 + int32(u)
	}
	return hash
}

// Generator is a deterministic draw stream. It holds its own integer
// state and advances only through Next; two generators built from the
// same seed emit identical streams.
type Generator struct {
	state uint32
}

// NewGenerator returns a generator positioned at seed.
func NewGenerator(seed int32) *Generator {
	return &Generator{state: uint32(seed)}
}

// Next advances the state by one and returns a value in [0, 1) via a
// mulberry32 mix. The recurrence is fixed; changing it breaks every
// pinned fixture downstream.
func (g *Generator) Next() float64 {
	g.state++
	t := g.state + 0x6D2B79F5
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296
}

// Path is a generated price series.
type Path struct {
	Seed      string    `json:"seed"`
	BasePrice float64   `json:"basePrice"`
	Prices    []float64 `json:"prices"`
}

// GeneratePath derives a generator from seed and draws a base price in
// [500, 1500) followed by PathLength points inside a ±10% band around
// it. An empty seed falls back to DefaultSeed.
func GeneratePath(seed string) Path {
	if seed == "" {
		seed = DefaultSeed
	}
	g := NewGenerator(SeedFromString(seed))
	base := g.Next()*1000 + 500
	prices := make([]float64, PathLength)
	for i := range prices {
		prices[i] = base * (1 + (g.Next()-0.5)*0.2)
	}
	return Path{Seed: seed, BasePrice: base, Prices: prices}
}

// Prediction is the rise/fall game outcome for a seed: a current price
// and a future price drawn from the same stream (±2.5% band).
type Prediction struct {
	CurrentPrice float64 `json:"currentPrice"`
	FuturePrice  float64 `json:"futurePrice"`
	Rose         bool    `json:"rose"`
}

// PredictMove draws the deterministic price pair for the prediction
// game. An empty seed falls back to DefaultSeed.
func PredictMove(seed string) Prediction {
	if seed == "" {
		seed = DefaultSeed
	}
	g := NewGenerator(SeedFromString(seed))
	current := g.Next()*1000 + 500
	future := current * (1 + (g.Next()-0.5)*0.05)
	return Prediction{CurrentPrice: current, FuturePrice: future, Rose: future > current}
}
