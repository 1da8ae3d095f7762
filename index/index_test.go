package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/featgen/index"
)

func strategies() []index.Strategy {
	return []index.Strategy{index.RoaringBitmap, index.HashIndex, index.SortedColumn}
}

func TestIndexSearch(t *testing.T) {
	for _, s := range strategies() {
		t.Run(s.String(), func(t *testing.T) {
			im := index.NewIndexManager(index.IndexSettings{HashIndexSize: 8})
			idx, err := im.CreateIndex("country", s)
			require.NoError(t, err)

			for i, c := range []string{"US", "GB", "US", "CA", "US"} {
				require.NoError(t, idx.Add(uint32(i), c))
			}

			ids, err := idx.Search("US")
			require.NoError(t, err)
			assert.Equal(t, []uint32{0, 2, 4}, ids)

			ids, err = idx.Search("FR")
			require.NoError(t, err)
			assert.Empty(t, ids)

			assert.Equal(t, []interface{}{"CA", "GB", "US"}, idx.Values())

			got, ok := im.GetIndex("country", s)
			assert.True(t, ok)
			assert.Same(t, idx, got)
		})
	}
}

func TestIndexRemoveAndClear(t *testing.T) {
	for _, s := range strategies() {
		t.Run(s.String(), func(t *testing.T) {
			idx, err := index.NewIndexManager(index.IndexSettings{}).CreateIndex("flag", s)
			require.NoError(t, err)

			require.NoError(t, idx.Add(1, int64(1)))
			require.NoError(t, idx.Add(2, int64(0)))
			require.NoError(t, idx.Add(3, int64(1)))

			require.NoError(t, idx.Remove(1))
			require.NoError(t, idx.Remove(42))
			ids, err := idx.Search(int64(1))
			require.NoError(t, err)
			assert.Equal(t, []uint32{3}, ids)

			// Re-adding a row moves it to the new value.
			require.NoError(t, idx.Add(2, int64(1)))
			ids, err = idx.Search(int64(1))
			require.NoError(t, err)
			assert.Equal(t, []uint32{2, 3}, ids)
			assert.Equal(t, []interface{}{int64(1)}, idx.Values())

			require.NoError(t, idx.Clear())
			assert.Empty(t, idx.Values())
		})
	}
}

func TestSortedIndexRange(t *testing.T) {
	idx := index.NewSortedIndex()
	ri, ok := idx.(index.RangeIndex)
	require.True(t, ok)

	_, ok = ri.Min()
	assert.False(t, ok)

	for i, v := range []float64{37.5, 12.25, 81.0, 12.25} {
		require.NoError(t, ri.Add(uint32(i), v))
	}

	minV, ok := ri.Min()
	require.True(t, ok)
	assert.Equal(t, 12.25, minV)
	maxV, ok := ri.Max()
	require.True(t, ok)
	assert.Equal(t, 81.0, maxV)
	assert.Equal(t, []interface{}{12.25, 37.5, 81.0}, ri.Values())
}

func TestBitmap(t *testing.T) {
	idx := index.NewRoaringIndex()
	for i, v := range []int64{1, 0, 1, 1} {
		require.NoError(t, idx.Add(uint32(i), v))
	}
	bm, err := index.Bitmap(idx, int64(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), bm.GetCardinality())
	assert.True(t, bm.Contains(3))
	assert.False(t, bm.Contains(1))
}

func TestCreateIndexUnsupported(t *testing.T) {
	_, err := index.NewIndexManager(index.IndexSettings{}).CreateIndex("x", index.Strategy(99))
	assert.Error(t, err)
}

func TestIndexRemoveLastRowDropsValue(t *testing.T) {
	for _, s := range strategies() {
		t.Run(s.String(), func(t *testing.T) {
			idx, err := index.NewIndexManager(index.IndexSettings{HashIndexSize: 4}).CreateIndex("country", s)
			require.NoError(t, err)

			require.NoError(t, idx.Add(0, "CA"))
			require.NoError(t, idx.Add(1, "US"))
			require.NoError(t, idx.Remove(0))
			assert.Equal(t, []interface{}{"US"}, idx.Values())

			ids, err := idx.Search("CA")
			require.NoError(t, err)
			assert.Empty(t, ids)

			require.NoError(t, idx.Clear())
			require.NoError(t, idx.Add(7, "GB"))
			ids, err = idx.Search("GB")
			require.NoError(t, err)
			assert.Equal(t, []uint32{7}, ids)
		})
	}
}
