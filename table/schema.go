package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Pool is the Go memory allocator used by Arrow.
var Pool = memory.NewGoAllocator()

// Column names in output order.
const (
	ColUserID      = "user_id"
	ColCountry     = "country"
	ColNOrders     = "n_orders"
	ColAvgAmount   = "avg_amount"
	ColTotalAmount = "total_amount"
	ColHighValue   = "is_high_value"
)

// Columns lists the header of the feature table.
var Columns = []string{
	ColUserID,
	ColCountry,
	ColNOrders,
	ColAvgAmount,
	ColTotalAmount,
	ColHighValue,
}

// Schema defines the schema for the feature table.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: ColUserID, Type: arrow.BinaryTypes.String},
	{Name: ColCountry, Type: arrow.BinaryTypes.String},
	{Name: ColNOrders, Type: arrow.PrimitiveTypes.Int64},
	{Name: ColAvgAmount, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColTotalAmount, Type: arrow.PrimitiveTypes.Float64},
	{Name: ColHighValue, Type: arrow.PrimitiveTypes.Int64},
}, nil)
