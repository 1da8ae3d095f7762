package query

import (
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/golang/groupcache/lru"

	"github.com/TFMV/featgen/index"
)

// Plan lists the columns to index and the strategy chosen for each.
type Plan struct {
	Columns         []string
	IndexStrategies map[string]index.Strategy
}

// Planner picks index strategies from column types and builds the indexes.
type Planner struct {
	indexManager *index.IndexManager

	mu    sync.Mutex
	cache *lru.Cache // schema fingerprint + columns -> *Plan
}

// NewPlanner creates a query planner
func NewPlanner(im *index.IndexManager) *Planner {
	return &Planner{indexManager: im, cache: lru.New(16)}
}

// PlanColumns returns a plan for columns of schema. Plans are cached per
// schema and column list.
func (p *Planner) PlanColumns(schema *arrow.Schema, columns []string) (*Plan, error) {
	key := schema.Fingerprint() + "|" + strings.Join(columns, ",")

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache.Get(key); ok {
		return cached.(*Plan), nil
	}

	plan := &Plan{
		Columns:         append([]string(nil), columns...),
		IndexStrategies: make(map[string]index.Strategy, len(columns)),
	}
	for _, col := range columns {
		fields, ok := schema.FieldsByName(col)
		if !ok || len(fields) == 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		strategy, err := chooseIndexStrategy(fields[0].Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		plan.IndexStrategies[col] = strategy
	}
	p.cache.Add(key, plan)
	return plan, nil
}

// chooseIndexStrategy: low-cardinality strings go to bitmaps, integer flags
// to the hash index and floats to the sorted index for min/max.
func chooseIndexStrategy(dt arrow.DataType) (index.Strategy, error) {
	switch dt.ID() {
	case arrow.STRING:
		return index.RoaringBitmap, nil
	case arrow.INT64:
		return index.HashIndex, nil
	case arrow.FLOAT64:
		return index.SortedColumn, nil
	default:
		return 0, fmt.Errorf("no index strategy for type %s", dt)
	}
}

// Execute creates the planned indexes and loads every row of rec into them.
func (p *Planner) Execute(plan *Plan, rec arrow.Record) error {
	for _, col := range plan.Columns {
		idx, err := p.indexManager.CreateIndex(col, plan.IndexStrategies[col])
		if err != nil {
			return err
		}
		indices := rec.Schema().FieldIndices(col)
		if len(indices) == 0 {
			return fmt.Errorf("unknown column %q", col)
		}
		if err := load(idx, rec.Column(indices[0])); err != nil {
			return fmt.Errorf("failed to index %s: %w", col, err)
		}
	}
	return nil
}

func load(idx index.Index, arr arrow.Array) error {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		var v interface{}
		switch a := arr.(type) {
		case *array.String:
			v = a.Value(i)
		case *array.Int64:
			v = a.Value(i)
		case *array.Float64:
			v = a.Value(i)
		default:
			return fmt.Errorf("unexpected array type %T", arr)
		}
		if err := idx.Add(uint32(i), v); err != nil {
			return err
		}
	}
	return nil
}

// Index returns the index built for column by Execute.
func (p *Planner) Index(plan *Plan, column string) (index.Index, error) {
	strategy, ok := plan.IndexStrategies[column]
	if !ok {
		return nil, fmt.Errorf("column %q is not in the plan", column)
	}
	idx, ok := p.indexManager.GetIndex(column, strategy)
	if !ok {
		return nil, fmt.Errorf("no %s index for column %q", strategy, column)
	}
	return idx, nil
}
