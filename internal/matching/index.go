package matching

import (
	"math"
	"sort"
)

// IndexEntry is one candidate vector to be indexed.
type IndexEntry struct {
	ID     string
	Vector []float32
}

// Result is one hit returned by Index.Search. Position is the entry's
// offset in the slice given to BuildIndex.
type Result struct {
	ID       string
	Score    float64
	Position int
}

// Index is an exact inner-product index over unit-length vectors, so the
// inner product equals cosine similarity. It is built per request and is
// read-only after BuildIndex returns.
type Index struct {
	dim     int
	ids     []string
	pos     []int
	vecs    [][]float64
	skipped int
}

// BuildIndex normalizes copies of every entry whose length equals dim and
// whose components are finite. A zero vector stays zero and scores the
// midpoint against any query. Other entries are left out and counted in Skipped.
func BuildIndex(dim int, entries []IndexEntry) *Index {
	idx := &Index{dim: dim}
	for i, e := range entries {
		if dim <= 0 || len(e.Vector) != dim {
			idx.skipped++
			continue
		}
		v, ok := normalize(e.Vector)
		if !ok {
			idx.skipped++
			continue
		}
		idx.ids = append(idx.ids, e.ID)
		idx.pos = append(idx.pos, i)
		idx.vecs = append(idx.vecs, v)
	}
	return idx
}

// Len is the number of indexed vectors.
func (x *Index) Len() int { return len(x.ids) }

// Skipped is the number of entries rejected at build time.
func (x *Index) Skipped() int { return x.skipped }

// Dim is the vector dimension the index accepts.
func (x *Index) Dim() int { return x.dim }

type searchOptions struct {
	minScore float64
}

// SearchOption tunes a Search call.
type SearchOption func(*searchOptions)

// WithMinScore drops hits whose rescaled score is below min.
func WithMinScore(min float64) SearchOption {
	return func(o *searchOptions) { o.minScore = min }
}

// Search returns up to k hits ordered by score descending. Ties fall back
// to candidate ID ascending, then insertion order. The min-score filter runs
// before truncation to k. An empty index, a non-positive k or a query of
// the wrong shape yields no hits.
func (x *Index) Search(query []float32, k int, opts ...SearchOption) []Result {
	o := searchOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if x.Len() == 0 || k <= 0 || len(query) != x.dim {
		return []Result{}
	}
	q, ok := normalize(query)
	if !ok {
		return []Result{}
	}

	// Filtering and ordering use the unrounded score; rounding is for output only.
	type hit struct {
		Result
		raw float64
	}
	hits := make([]hit, 0, x.Len())
	for i, v := range x.vecs {
		var dot float64
		for j := range v {
			dot += v[j] * q[j]
		}
		raw := Rescale(math.Max(-1, math.Min(1, dot)))
		if raw < o.minScore {
			continue
		}
		hits = append(hits, hit{Result: Result{ID: x.ids[i], Score: Round2(raw), Position: x.pos[i]}, raw: raw})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].raw != hits[b].raw {
			return hits[a].raw > hits[b].raw
		}
		if hits[a].ID != hits[b].ID {
			return hits[a].ID < hits[b].ID
		}
		return hits[a].Position < hits[b].Position
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = h.Result
	}
	return out
}

// normalize returns a unit-length copy of v, or an all-zero copy when v has
// zero norm. It reports false when a component is NaN or infinite.
func normalize(v []float32) ([]float64, bool) {
	var sum float64
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, false
		}
		sum += float64(f) * float64(f)
	}
	out := make([]float64, len(v))
	if sum == 0 {
		return out, true
	}
	n := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float64(f) / n
	}
	return out, true
}
