// Package table holds the in-memory feature table as a single Arrow record.
package table

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ErrSchemaMismatch is returned when a record does not carry the feature table columns.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Row is one user's synthetic order statistics.
type Row struct {
	UserID      string
	Country     string
	NOrders     int64
	AvgAmount   float64
	TotalAmount float64
	IsHighValue int64
}

// ColumnData holds the feature table column-wise, in generation order.
type ColumnData struct {
	UserIDs      []string
	Countries    []string
	NOrders      []int64
	AvgAmounts   []float64
	TotalAmounts []float64
	HighValue    []int64
}

// Len returns the row count, or an error when the columns disagree.
func (c ColumnData) Len() (int, error) {
	n := len(c.UserIDs)
	for name, l := range map[string]int{
		ColCountry:     len(c.Countries),
		ColNOrders:     len(c.NOrders),
		ColAvgAmount:   len(c.AvgAmounts),
		ColTotalAmount: len(c.TotalAmounts),
		ColHighValue:   len(c.HighValue),
	} {
		if l != n {
			return 0, fmt.Errorf("column %s has %d values, want %d", name, l, n)
		}
	}
	return n, nil
}

// Table is an immutable feature table backed by one Arrow record.
type Table struct {
	record arrow.Record
}

// Build assembles columns into a Table. The caller owns the result and must Release it.
func Build(cols ColumnData) (*Table, error) {
	if _, err := cols.Len(); err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(Pool, Schema)
	defer builder.Release()

	builder.Field(0).(*array.StringBuilder).AppendValues(cols.UserIDs, nil)
	builder.Field(1).(*array.StringBuilder).AppendValues(cols.Countries, nil)
	builder.Field(2).(*array.Int64Builder).AppendValues(cols.NOrders, nil)
	builder.Field(3).(*array.Float64Builder).AppendValues(cols.AvgAmounts, nil)
	builder.Field(4).(*array.Float64Builder).AppendValues(cols.TotalAmounts, nil)
	builder.Field(5).(*array.Int64Builder).AppendValues(cols.HighValue, nil)

	return &Table{record: builder.NewRecord()}, nil
}

// New builds a Table from rows.
func New(rows []Row) *Table {
	cols := ColumnData{
		UserIDs:      make([]string, len(rows)),
		Countries:    make([]string, len(rows)),
		NOrders:      make([]int64, len(rows)),
		AvgAmounts:   make([]float64, len(rows)),
		TotalAmounts: make([]float64, len(rows)),
		HighValue:    make([]int64, len(rows)),
	}
	for i, r := range rows {
		cols.UserIDs[i] = r.UserID
		cols.Countries[i] = r.Country
		cols.NOrders[i] = r.NOrders
		cols.AvgAmounts[i] = r.AvgAmount
		cols.TotalAmounts[i] = r.TotalAmount
		cols.HighValue[i] = r.IsHighValue
	}
	// Column lengths are equal by construction.
	t, _ := Build(cols)
	return t
}

// FromRecord wraps a record read back from disk. Field names and types must
// match Schema; field metadata and nullability are normalized away.
func FromRecord(rec arrow.Record) (*Table, error) {
	got := rec.Schema()
	if got.NumFields() != Schema.NumFields() {
		return nil, fmt.Errorf("%w: %d fields, want %d", ErrSchemaMismatch, got.NumFields(), Schema.NumFields())
	}
	for i, want := range Schema.Fields() {
		f := got.Field(i)
		if f.Name != want.Name || !arrow.TypeEqual(f.Type, want.Type) {
			return nil, fmt.Errorf("%w: field %d is %s %s, want %s %s",
				ErrSchemaMismatch, i, f.Name, f.Type, want.Name, want.Type)
		}
	}
	return &Table{record: array.NewRecord(Schema, rec.Columns(), rec.NumRows())}, nil
}

// Record returns the backing record. It stays owned by the Table.
func (t *Table) Record() arrow.Record {
	return t.record
}

// NumRows returns the number of feature rows.
func (t *Table) NumRows() int {
	return int(t.record.NumRows())
}

// Rows materializes the table row by row, in generation order.
func (t *Table) Rows() []Row {
	userIDs := t.record.Column(0).(*array.String)
	countries := t.record.Column(1).(*array.String)
	nOrders := t.record.Column(2).(*array.Int64)
	avgAmounts := t.record.Column(3).(*array.Float64)
	totals := t.record.Column(4).(*array.Float64)
	highValue := t.record.Column(5).(*array.Int64)

	rows := make([]Row, t.NumRows())
	for i := range rows {
		rows[i] = Row{
			UserID:      userIDs.Value(i),
			Country:     countries.Value(i),
			NOrders:     nOrders.Value(i),
			AvgAmount:   avgAmounts.Value(i),
			TotalAmount: totals.Value(i),
			IsHighValue: highValue.Value(i),
		}
	}
	return rows
}

// Release frees the Arrow buffers behind the table.
func (t *Table) Release() {
	if t.record != nil {
		t.record.Release()
		t.record = nil
	}
}
