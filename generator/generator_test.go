package generator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/TFMV/featgen/generator"
	"github.com/TFMV/featgen/table"
)

func generate(t require.TestingT, cfg generator.Config) []table.Row {
	tbl, err := generator.Generate(cfg)
	require.NoError(t, err)
	defer tbl.Release()
	return tbl.Rows()
}

func hasTwoDecimals(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

func TestGenerateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 400).Draw(t, "n_users")
		seed := rapid.Int64().Draw(t, "seed")

		rows := generate(t, generator.Config{NUsers: n, Seed: seed})
		require.Len(t, rows, n)

		for i, row := range rows {
			assert.Equal(t, generator.UserID(i+1), row.UserID)
			if i > 0 {
				assert.Less(t, rows[i-1].UserID, row.UserID)
			}
			assert.Contains(t, generator.Countries, row.Country)
			assert.GreaterOrEqual(t, row.NOrders, int64(1))
			assert.LessOrEqual(t, row.NOrders, int64(9))
			assert.GreaterOrEqual(t, row.AvgAmount, 1.0)
			assert.True(t, hasTwoDecimals(row.AvgAmount), "avg_amount %v", row.AvgAmount)
			assert.True(t, hasTwoDecimals(row.TotalAmount), "total_amount %v", row.TotalAmount)
			assert.Equal(t, row.TotalAmount >= 65, row.IsHighValue == 1)
		}
	})
}

func TestGenerateIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := generator.Config{
			NUsers: rapid.IntRange(0, 200).Draw(t, "n_users"),
			Seed:   rapid.Int64().Draw(t, "seed"),
		}
		assert.Equal(t, generate(t, cfg), generate(t, cfg))
	})
}

func TestGenerateSampleScenario(t *testing.T) {
	rows := generate(t, generator.Config{NUsers: 5, Seed: 42})
	require.Len(t, rows, 5)

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	assert.Equal(t, []string{"u001", "u002", "u003", "u004", "u005"}, ids)
	assert.Equal(t, rows, generate(t, generator.Config{NUsers: 5, Seed: 42}))
	assert.NotEqual(t, rows, generate(t, generator.Config{NUsers: 5, Seed: 43}))
}

func TestGenerateBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		nUsers  int
		wantLen int
		wantErr error
	}{
		{name: "zero_users_yields_empty_table", nUsers: 0, wantLen: 0},
		{name: "one_user", nUsers: 1, wantLen: 1},
		{name: "negative_users_is_an_error", nUsers: -1, wantErr: generator.ErrNegativeUsers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := generator.Generate(generator.Config{NUsers: tt.nUsers, Seed: 42})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tbl)
				return
			}
			require.NoError(t, err)
			defer tbl.Release()
			assert.Equal(t, tt.wantLen, tbl.NumRows())
		})
	}
}

func TestGenerateDrawOrder(t *testing.T) {
	const n = 20
	rows := generate(t, generator.Config{NUsers: n, Seed: 7})

	rng := generator.NewRand(7)
	for i := 0; i < n; i++ {
		assert.Equal(t, generator.Countries[rng.IntN(3)], rows[i].Country, "country %d", i)
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, int64(1+rng.IntN(9)), rows[i].NOrders, "n_orders %d", i)
	}
	for i := 0; i < n; i++ {
		avg := math.Max(rng.NormFloat64()*3+10, 1)
		assert.Equal(t, generator.Round2(avg), rows[i].AvgAmount, "avg_amount %d", i)
		assert.Equal(t, generator.Round2(float64(rows[i].NOrders)*avg), rows[i].TotalAmount, "total_amount %d", i)
	}
}

func TestUserIDWidth(t *testing.T) {
	assert.Equal(t, "u001", generator.UserID(1))
	assert.Equal(t, "u050", generator.UserID(50))
	assert.Equal(t, "u999", generator.UserID(999))
	assert.Equal(t, "u1000", generator.UserID(1000))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.0, generator.Round2(10.001))
	assert.Equal(t, 10.13, generator.Round2(10.126))
	assert.Equal(t, 0.12, generator.Round2(0.125))
	assert.Equal(t, 1.0, generator.Round2(1))
}

func TestIsHighValue(t *testing.T) {
	assert.Equal(t, int64(0), generator.IsHighValue(64.99))
	assert.Equal(t, int64(1), generator.IsHighValue(65))
	assert.Equal(t, int64(1), generator.IsHighValue(81.3))

	// The flag follows the stored total, so an unrounded total just under the
	// threshold that rounds up to it is flagged.
	assert.Equal(t, int64(1), generator.IsHighValue(generator.Round2(64.995828)))
	assert.Equal(t, int64(0), generator.IsHighValue(generator.Round2(64.994)))
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, generator.Config{NUsers: 50, Seed: 42}, generator.DefaultConfig())
}
