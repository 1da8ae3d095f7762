// Package generator synthesizes the deterministic per-user feature table.
//
// All random values come from a single seeded stream, drawn column by column:
// every country first, then every order count, then every average amount.
// Changing that order changes the output for a given seed.
package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/TFMV/featgen/table"
)

const (
	// DefaultUsers is the row count used when none is given.
	DefaultUsers = 50
	// DefaultSeed is the seed used when none is given.
	DefaultSeed = 42

	// HighValueThreshold is the total amount at which a user is flagged.
	HighValueThreshold = 65.0

	minOrders = 1
	maxOrders = 10 // exclusive

	amountMean   = 10.0
	amountStdDev = 3.0
	amountFloor  = 1.0

	// pcgStream is the fixed second PCG seed word; the user seed is the first.
	pcgStream = 0x9e3779b97f4a7c15
)

// Countries is the closed set country codes are drawn from.
var Countries = []string{"US", "CA", "GB"}

// ErrNegativeUsers is returned for a negative user count.
var ErrNegativeUsers = errors.New("n_users must not be negative")

// Config controls one generation run.
type Config struct {
	NUsers int
	Seed   int64
}

// DefaultConfig returns 50 users with seed 42.
func DefaultConfig() Config {
	return Config{NUsers: DefaultUsers, Seed: DefaultSeed}
}

// NewRand returns the random stream for a seed. Any int64 is accepted.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), pcgStream))
}

// Generate builds the feature table for cfg. A zero user count yields an
// empty table. The caller must Release the result.
func Generate(cfg Config) (*table.Table, error) {
	if cfg.NUsers < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeUsers, cfg.NUsers)
	}
	n := cfg.NUsers
	rng := NewRand(cfg.Seed)

	// 1. Draw the random columns in stream order.
	countries := make([]string, n)
	for i := range countries {
		countries[i] = Countries[rng.IntN(len(Countries))]
	}
	nOrders := make([]int64, n)
	for i := range nOrders {
		nOrders[i] = int64(minOrders + rng.IntN(maxOrders-minOrders))
	}
	avgAmounts := make([]float64, n)
	for i := range avgAmounts {
		avgAmounts[i] = math.Max(rng.NormFloat64()*amountStdDev+amountMean, amountFloor)
	}

	// 2. Derive the aggregate columns from the full-precision averages.
	cols := table.ColumnData{
		UserIDs:      make([]string, n),
		Countries:    countries,
		NOrders:      nOrders,
		AvgAmounts:   make([]float64, n),
		TotalAmounts: make([]float64, n),
		HighValue:    make([]int64, n),
	}
	for i := 0; i < n; i++ {
		total := Round2(float64(nOrders[i]) * avgAmounts[i])

		cols.UserIDs[i] = UserID(i + 1)
		cols.AvgAmounts[i] = Round2(avgAmounts[i])
		cols.TotalAmounts[i] = total
		cols.HighValue[i] = IsHighValue(total)
	}

	// 3. Assemble in generation order.
	return table.Build(cols)
}

// UserID formats the 1-based sequence number as u001, u002, ...
func UserID(seq int) string {
	return fmt.Sprintf("u%03d", seq)
}

// Round2 rounds half to even at two decimal places.
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// IsHighValue returns 1 when total reaches HighValueThreshold, else 0.
func IsHighValue(total float64) int64 {
	if total >= HighValueThreshold {
		return 1
	}
	return 0
}
