package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	roaring "github.com/RoaringBitmap/roaring"
	murmur3 "github.com/spaolacci/murmur3"
)

// ---------------------------------------------------------------------
// Strategy: Defines which indexing strategy to use
// ---------------------------------------------------------------------

type Strategy int

const (
	RoaringBitmap Strategy = iota
	HashIndex
	SortedColumn
)

func (s Strategy) String() string {
	switch s {
	case RoaringBitmap:
		return "roaring"
	case HashIndex:
		return "hash"
	case SortedColumn:
		return "sorted"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ---------------------------------------------------------------------
// Index: The universal interface for all index implementations
// ---------------------------------------------------------------------

type Index interface {
	// Add inserts rowID for the given value into the index
	Add(rowID uint32, value interface{}) error
	// Remove removes rowID (and its associated value) from the index
	Remove(rowID uint32) error
	// Search returns all rowIDs matching the given value, ascending
	Search(value interface{}) ([]uint32, error)
	// Values returns the distinct indexed values in ascending order
	Values() []interface{}
	// Clear removes all entries
	Clear() error
}

// RangeIndex is an Index that also knows its smallest and largest value.
type RangeIndex interface {
	Index
	Min() (interface{}, bool)
	Max() (interface{}, bool)
}

// Bitmap returns the rowIDs matching value as a roaring bitmap.
func Bitmap(idx Index, value interface{}) (*roaring.Bitmap, error) {
	ids, err := idx.Search(value)
	if err != nil {
		return nil, err
	}
	return roaring.BitmapOf(ids...), nil
}

// ---------------------------------------------------------------------
// IndexManager: Manages multiple indexes per column
// ---------------------------------------------------------------------

type IndexManager struct {
	mu       sync.RWMutex
	indexes  map[string]map[Strategy]Index
	settings IndexSettings
}

type IndexSettings struct {
	// HashIndexSize is an (optional) hint for sizing a HashIndex
	HashIndexSize int
}

// NewIndexManager creates a new index manager with the given settings
func NewIndexManager(settings IndexSettings) *IndexManager {
	return &IndexManager{
		indexes:  make(map[string]map[Strategy]Index),
		settings: settings,
	}
}

// CreateIndex instantiates a new index of the specified strategy for a given column
func (im *IndexManager) CreateIndex(column string, strategy Strategy) (Index, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	var idx Index
	switch strategy {
	case RoaringBitmap:
		idx = NewRoaringIndex()
	case HashIndex:
		idx = NewHashIndex(im.settings.HashIndexSize)
	case SortedColumn:
		idx = NewSortedIndex()
	default:
		return nil, fmt.Errorf("unsupported index strategy: %v", strategy)
	}

	if im.indexes[column] == nil {
		im.indexes[column] = make(map[Strategy]Index)
	}
	im.indexes[column][strategy] = idx
	return idx, nil
}

// GetIndex retrieves an existing index for a given column and strategy
func (im *IndexManager) GetIndex(column string, strategy Strategy) (Index, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	strats, ok := im.indexes[column]
	if !ok {
		return nil, false
	}
	idx, exists := strats[strategy]
	return idx, exists
}

// ---------------------------------------------------------------------
// Postings: value -> roaring.Bitmap of rowIDs, grouped by a bucket key.
//
// The roaring index keeps every value in one bucket; the hash index
// spreads values over murmur3 buckets. Both track rowID -> posting so a
// row can be unlinked without knowing its value.
// ---------------------------------------------------------------------

type posting struct {
	key   uint64
	value interface{}
}

type postings struct {
	mu      sync.RWMutex
	size    int
	bucket  func(value interface{}) uint64
	buckets map[uint64]map[interface{}]*roaring.Bitmap
	rows    map[uint32]posting
}

func newPostings(sizeHint int, bucket func(value interface{}) uint64) *postings {
	p := &postings{size: sizeHint, bucket: bucket}
	p.reset()
	return p
}

// NewRoaringIndex returns an Index with one bitmap per distinct value.
func NewRoaringIndex() Index {
	return newPostings(0, func(interface{}) uint64 { return 0 })
}

// NewHashIndex returns an Index whose values are bucketed by murmur3 hash.
// sizeHint presizes the bucket and row maps.
func NewHashIndex(sizeHint int) Index {
	return newPostings(sizeHint, murmurKey)
}

func (p *postings) reset() {
	p.buckets = make(map[uint64]map[interface{}]*roaring.Bitmap, p.size)
	p.rows = make(map[uint32]posting, p.size)
}

func (p *postings) Add(rowID uint32, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unlink(rowID)

	key := p.bucket(value)
	values, ok := p.buckets[key]
	if !ok {
		values = make(map[interface{}]*roaring.Bitmap)
		p.buckets[key] = values
	}
	bm, ok := values[value]
	if !ok {
		bm = roaring.New()
		values[value] = bm
	}
	bm.Add(rowID)
	p.rows[rowID] = posting{key: key, value: value}
	return nil
}

func (p *postings) Remove(rowID uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unlink(rowID)
	return nil
}

// unlink drops rowID and any bitmap or bucket it leaves empty. Caller holds mu.
func (p *postings) unlink(rowID uint32) {
	pos, ok := p.rows[rowID]
	if !ok {
		return
	}
	delete(p.rows, rowID)

	values := p.buckets[pos.key]
	if bm, ok := values[pos.value]; ok {
		bm.Remove(rowID)
		if bm.IsEmpty() {
			delete(values, pos.value)
		}
	}
	if len(values) == 0 {
		delete(p.buckets, pos.key)
	}
}

func (p *postings) Search(value interface{}) ([]uint32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bm := p.buckets[p.bucket(value)][value]
	if bm == nil {
		return nil, nil
	}
	return bm.ToArray(), nil
}

func (p *postings) Values() []interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []interface{}
	for _, values := range p.buckets {
		for v := range values {
			out = append(out, v)
		}
	}
	sortValues(out)
	return out
}

func (p *postings) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
	return nil
}

// murmurKey hashes a value to a 64-bit key via its string form.
func murmurKey(value interface{}) uint64 {
	return murmur3.Sum64([]byte(toString(value)))
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ---------------------------------------------------------------------
// Sorted Column Index
//
//    Stores (value, rowID) entries in a sorted slice by "value".
//    Insertions & deletions are O(n), searching is O(log n) by value.
// ---------------------------------------------------------------------

type sortedIndex struct {
	mu      sync.RWMutex
	entries []sortedEntry
}

type sortedEntry struct {
	value interface{}
	rowID uint32
}

// NewSortedIndex constructs an index ordered by value; it implements RangeIndex.
func NewSortedIndex() Index {
	return &sortedIndex{
		entries: make([]sortedEntry, 0),
	}
}

func (s *sortedIndex) Add(rowID uint32, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(rowID)

	// Insert after any equal values so rowIDs of one value stay in insertion order.
	pos := sort.Search(len(s.entries), func(i int) bool {
		return compareValues(s.entries[i].value, value) > 0
	})
	s.entries = append(s.entries, sortedEntry{})
	copy(s.entries[pos+1:], s.entries[pos:])
	s.entries[pos] = sortedEntry{value: value, rowID: rowID}
	return nil
}

func (s *sortedIndex) Remove(rowID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(rowID)
	return nil
}

func (s *sortedIndex) removeLocked(rowID uint32) {
	for i, e := range s.entries {
		if e.rowID == rowID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *sortedIndex) Search(value interface{}) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	left := sort.Search(n, func(i int) bool {
		return compareValues(s.entries[i].value, value) >= 0
	})

	var result []uint32
	for i := left; i < n && compareValues(s.entries[i].value, value) == 0; i++ {
		result = append(result, s.entries[i].rowID)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (s *sortedIndex) Values() []interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []interface{}
	for i, e := range s.entries {
		if i == 0 || compareValues(s.entries[i-1].value, e.value) != 0 {
			out = append(out, e.value)
		}
	}
	return out
}

func (s *sortedIndex) Min() (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[0].value, true
}

func (s *sortedIndex) Max() (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[len(s.entries)-1].value, true
}

func (s *sortedIndex) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]sortedEntry, 0)
	return nil
}

func sortValues(values []interface{}) {
	sort.Slice(values, func(i, j int) bool {
		return compareValues(values[i], values[j]) < 0
	})
}

// compareValues compares two values of the same type (int, int64, float64
// or string), falling back to their string forms. Returns <0, 0 or >0.
func compareValues(a, b interface{}) int {
	switch va := a.(type) {
	case int:
		if vb, ok := b.(int); ok {
			return compareOrdered(va, vb)
		}
	case int64:
		if vb, ok := b.(int64); ok {
			return compareOrdered(va, vb)
		}
	case float64:
		if vb, ok := b.(float64); ok {
			return compareOrdered(va, vb)
		}
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	}
	return strings.Compare(toString(a), toString(b))
}

func compareOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
