package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/featgen/generator"
	"github.com/TFMV/featgen/query"
	"github.com/TFMV/featgen/table"
)

func TestSummarize(t *testing.T) {
	tbl := table.New([]table.Row{
		{UserID: "u001", Country: "US", NOrders: 3, AvgAmount: 12.5, TotalAmount: 37.5, IsHighValue: 0},
		{UserID: "u002", Country: "GB", NOrders: 9, AvgAmount: 8.5, TotalAmount: 76.5, IsHighValue: 1},
		{UserID: "u003", Country: "US", NOrders: 7, AvgAmount: 10, TotalAmount: 70, IsHighValue: 1},
		{UserID: "u004", Country: "US", NOrders: 1, AvgAmount: 4.25, TotalAmount: 4.25, IsHighValue: 0},
	})
	defer tbl.Release()

	s, err := query.Summarize(tbl)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 2, s.HighValueUsers)
	assert.Equal(t, 4.25, s.MinTotal)
	assert.Equal(t, 76.5, s.MaxTotal)
	assert.Equal(t, []query.CountrySummary{
		{Country: "GB", Users: 1, HighValueUsers: 1, TotalAmount: 76.5},
		{Country: "US", Users: 3, HighValueUsers: 1, TotalAmount: 111.75},
	}, s.Countries)
}

func TestSummarizeEmpty(t *testing.T) {
	tbl := table.New(nil)
	defer tbl.Release()

	s, err := query.Summarize(tbl)
	require.NoError(t, err)
	assert.Equal(t, query.Summary{}, s)
}

func TestSummarizeGeneratedTableIsConsistent(t *testing.T) {
	tbl, err := generator.Generate(generator.DefaultConfig())
	require.NoError(t, err)
	defer tbl.Release()

	s, err := query.Summarize(tbl)
	require.NoError(t, err)

	var users, high int
	for _, c := range s.Countries {
		assert.Contains(t, generator.Countries, c.Country)
		users += c.Users
		high += c.HighValueUsers
	}
	assert.Equal(t, 50, s.Rows)
	assert.Equal(t, s.Rows, users)
	assert.Equal(t, s.HighValueUsers, high)
	assert.LessOrEqual(t, s.MinTotal, s.MaxTotal)
}
