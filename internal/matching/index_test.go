package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_Empty(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(3, nil)
	assert.Equal(t, 0, idx.Len())
	res := idx.Search([]float32{1, 0, 0}, 10)
	require.NotNil(t, res)
	assert.Empty(t, res)
	assert.Empty(t, idx.Search(nil, 10, WithMinScore(0)))
}

func TestIndex_SkipsInvalidVectors(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(3, []IndexEntry{
		{ID: "ok", Vector: []float32{1, 0, 0}},
		{ID: "short", Vector: []float32{1, 0}},
		{ID: "zero", Vector: []float32{0, 0, 0}},
		{ID: "nan", Vector: []float32{float32(math.NaN()), 0, 0}},
		{ID: "inf", Vector: []float32{float32(math.Inf(1)), 0, 0}},
		{ID: "nil"},
	})
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 4, idx.Skipped())
	assert.Equal(t, 3, idx.Dim())
}

func TestIndex_SearchOrdersByCosine(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{
		{ID: "opposite", Vector: []float32{-1, 0}},
		{ID: "exact", Vector: []float32{5, 0}},
		{ID: "orthogonal", Vector: []float32{0, 2}},
		{ID: "diagonal", Vector: []float32{1, 1}},
	})
	res := idx.Search([]float32{3, 0}, 10)
	require.Len(t, res, 4)
	assert.Equal(t, []string{"exact", "diagonal", "orthogonal", "opposite"}, ids(res))
	assert.Equal(t, 100.0, res[0].Score)
	assert.Equal(t, 85.36, res[1].Score)
	assert.Equal(t, 50.0, res[2].Score)
	assert.Equal(t, 0.0, res[3].Score)
}

func TestIndex_KIsCapped(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	})
	assert.Len(t, idx.Search([]float32{1, 1}, 1), 1)
	assert.Len(t, idx.Search([]float32{1, 1}, 100), 2)
	assert.Empty(t, idx.Search([]float32{1, 1}, 0))
}

func TestIndex_MinScoreFiltersBeforeTruncation(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{
		{ID: "neg1", Vector: []float32{-1, 0.1}},
		{ID: "neg2", Vector: []float32{-1, 0.2}},
		{ID: "pos", Vector: []float32{1, 0.5}},
		{ID: "pos2", Vector: []float32{1, 0.9}},
	})
	res := idx.Search([]float32{1, 0}, 3, WithMinScore(50))
	assert.Equal(t, []string{"pos", "pos2"}, ids(res))
	for _, r := range res {
		assert.GreaterOrEqual(t, r.Score, 50.0)
	}
}

func TestIndex_TieBreakByIDThenInsertion(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{
		{ID: "c", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{2, 0}},
		{ID: "b", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{3, 0}},
	})
	res := idx.Search([]float32{1, 0}, 10)
	require.Len(t, res, 4)
	assert.Equal(t, []string{"a", "a", "b", "c"}, ids(res))
	assert.Equal(t, 1, res[0].Position)
	assert.Equal(t, 3, res[1].Position)
}

func TestIndex_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	v := []float32{3, 4}
	idx := BuildIndex(2, []IndexEntry{{ID: "a", Vector: v}})
	q := []float32{6, 8}
	_ = idx.Search(q, 1)
	assert.Equal(t, []float32{3, 4}, v)
	assert.Equal(t, []float32{6, 8}, q)
}

func TestIndex_ZeroQueryScoresMidpoint(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{{ID: "a", Vector: []float32{1, 0}}})
	res := idx.Search([]float32{0, 0}, 1)
	require.Len(t, res, 1)
	assert.Equal(t, 50.0, res[0].Score)
}

func TestIndex_WrongQueryDimension(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{{ID: "a", Vector: []float32{1, 0}}})
	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 1))
}

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestIndex_PositionRefersToInputSlice(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{
		{ID: "skipped", Vector: []float32{1}},
		{ID: "x", Vector: []float32{1, 0}},
	})
	res := idx.Search([]float32{1, 0}, 1)
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Position)
}

func TestIndex_ZeroVectorScoresMidpoint(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{
		{ID: "blank", Vector: []float32{0, 0}},
		{ID: "a", Vector: []float32{1, 0}},
	})
	assert.Equal(t, 0, idx.Skipped())
	res := idx.Search([]float32{1, 0}, 10, WithMinScore(50))
	require.Len(t, res, 2)
	assert.Equal(t, []string{"a", "blank"}, ids(res))
	assert.Equal(t, 50.0, res[1].Score)
}

func TestIndex_MinScoreComparesUnroundedScore(t *testing.T) {
	t.Parallel()
	// cosine of about -0.00005 rescales to 49.9975, which rounds to 50.00
	idx := BuildIndex(2, []IndexEntry{
		{ID: "just-below", Vector: []float32{-0.00005, 1}},
		{ID: "orthogonal", Vector: []float32{0, 1}},
	})
	res := idx.Search([]float32{1, 0}, 10, WithMinScore(50))
	assert.Equal(t, []string{"orthogonal"}, ids(res))

	all := idx.Search([]float32{1, 0}, 10)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"orthogonal", "just-below"}, ids(all), "order follows the unrounded score, not the id")
	assert.Equal(t, 50.0, all[1].Score)
}

func TestIndex_NonFiniteQuery(t *testing.T) {
	t.Parallel()
	idx := BuildIndex(2, []IndexEntry{{ID: "a", Vector: []float32{1, 0}}})
	res := idx.Search([]float32{float32(math.NaN()), 0}, 1)
	require.NotNil(t, res)
	assert.Empty(t, res)
}
