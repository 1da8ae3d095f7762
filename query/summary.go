// Package query computes read-only aggregates over a feature table.
package query

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/TFMV/featgen/index"
	"github.com/TFMV/featgen/table"
)

// CountrySummary aggregates the users of one country.
type CountrySummary struct {
	Country        string
	Users          int
	HighValueUsers int
	TotalAmount    float64
}

// Summary aggregates a whole feature table.
type Summary struct {
	Rows           int
	HighValueUsers int
	MinTotal       float64
	MaxTotal       float64
	Countries      []CountrySummary
}

// Summarize indexes country, is_high_value and total_amount through a
// Planner and aggregates per country. Countries are returned in ascending code order.
func Summarize(t *table.Table) (Summary, error) {
	rec := t.Record()

	totalCol, ok := rec.Column(4).(*array.Float64)
	if !ok {
		return Summary{}, fmt.Errorf("unexpected type for %s column: %T", table.ColTotalAmount, rec.Column(4))
	}

	planner := NewPlanner(index.NewIndexManager(index.IndexSettings{HashIndexSize: 2}))
	plan, err := planner.PlanColumns(rec.Schema(), []string{table.ColCountry, table.ColHighValue, table.ColTotalAmount})
	if err != nil {
		return Summary{}, err
	}
	if err := planner.Execute(plan, rec); err != nil {
		return Summary{}, err
	}
	byCountry, err := planner.Index(plan, table.ColCountry)
	if err != nil {
		return Summary{}, err
	}
	byFlag, err := planner.Index(plan, table.ColHighValue)
	if err != nil {
		return Summary{}, err
	}
	byTotal, err := planner.Index(plan, table.ColTotalAmount)
	if err != nil {
		return Summary{}, err
	}

	high, err := index.Bitmap(byFlag, int64(1))
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Rows:           int(rec.NumRows()),
		HighValueUsers: int(high.GetCardinality()),
	}
	if ri, ok := byTotal.(index.RangeIndex); ok {
		if v, ok := ri.Min(); ok {
			s.MinTotal = v.(float64)
		}
		if v, ok := ri.Max(); ok {
			s.MaxTotal = v.(float64)
		}
	}

	for _, v := range byCountry.Values() {
		country := v.(string)
		users, err := index.Bitmap(byCountry, country)
		if err != nil {
			return Summary{}, err
		}

		cs := CountrySummary{
			Country:        country,
			Users:          int(users.GetCardinality()),
			HighValueUsers: int(users.AndCardinality(high)),
		}
		it := users.Iterator()
		for it.HasNext() {
			cs.TotalAmount += totalCol.Value(int(it.Next()))
		}
		s.Countries = append(s.Countries, cs)
	}
	return s, nil
}
