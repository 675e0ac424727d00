package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

func f64(v float64) *float64 { return &v }

func TestSkillScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		resume domain.SkillSet
		job    domain.SkillSet
		want   float64
	}{
		{"empty job", domain.NewSkillSet("go"), domain.NewSkillSet(), 0},
		{"empty resume", domain.NewSkillSet(), domain.NewSkillSet("go"), 0},
		{"both empty", domain.NewSkillSet(), domain.NewSkillSet(), 0},
		{"identical", domain.NewSkillSet("go", "sql"), domain.NewSkillSet("go", "sql"), 100},
		{"superset resume", domain.NewSkillSet("python", "sql", "docker"), domain.NewSkillSet("python", "sql"), 100},
		{"half", domain.NewSkillSet("python"), domain.NewSkillSet("python", "sql"), 50},
		{"case insensitive", domain.NewSkillSet("PYTHON", " Sql "), domain.NewSkillSet("python", "sql"), 100},
		{"disjoint", domain.NewSkillSet("rust"), domain.NewSkillSet("python", "sql", "go"), 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SkillScore(tt.resume, tt.job)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestSkillScore_ThirdIsNotRoundedHere(t *testing.T) {
	t.Parallel()
	got := SkillScore(domain.NewSkillSet("a"), domain.NewSkillSet("a", "b", "c"))
	assert.InDelta(t, 100.0/3, got, 1e-9)
}

func TestExperienceScore_Table(t *testing.T) {
	t.Parallel()
	rng := func(min, max *float64) domain.ExperienceRange { return domain.ExperienceRange{Min: min, Max: max} }
	tests := []struct {
		name  string
		years *float64
		r     domain.ExperienceRange
		want  float64
	}{
		{"unknown years", nil, rng(f64(3), nil), 50},
		{"no minimum", f64(0), rng(nil, nil), 100},
		{"no minimum with max", f64(30), rng(nil, f64(2)), 100},
		{"at minimum open ended", f64(3), rng(f64(3), nil), 100},
		{"above minimum open ended", f64(25), rng(f64(3), nil), 100},
		{"inside range", f64(4), rng(f64(3), f64(5)), 100},
		{"at max", f64(5), rng(f64(3), f64(5)), 100},
		{"one over max", f64(6), rng(f64(3), f64(5)), 95},
		{"far over max capped", f64(50), rng(f64(3), f64(5)), 80},
		{"one under min", f64(2), rng(f64(3), f64(5)), 80},
		{"half year under", f64(2.5), rng(f64(3), nil), 90},
		{"one year vs five", f64(1), rng(f64(5), nil), 20},
		{"far under min capped", f64(0), rng(f64(10), nil), 20},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ExperienceScore(tt.years, tt.r), 1e-9)
		})
	}
}

func TestExperienceScore_Shape(t *testing.T) {
	t.Parallel()
	r := domain.ExperienceRange{Min: f64(4), Max: f64(8)}
	prev := -1.0
	for y := 0.0; y <= 20; y += 0.25 {
		got := ExperienceScore(f64(y), r)
		switch {
		case y < 4:
			assert.GreaterOrEqual(t, got, prev, "non-decreasing below min at %v", y)
			assert.GreaterOrEqual(t, got, 20.0)
			assert.LessOrEqual(t, got, 100.0)
		case y <= 8:
			assert.Equal(t, 100.0, got, "flat inside range at %v", y)
		default:
			assert.LessOrEqual(t, got, prev, "non-increasing above max at %v", y)
			assert.GreaterOrEqual(t, got, 80.0)
			assert.LessOrEqual(t, got, 100.0)
		}
		prev = got
	}
}

func TestRescale_Endpoints(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 50.0, Rescale(0))
	assert.Equal(t, 100.0, Rescale(1))
	assert.Equal(t, 0.0, Rescale(-1))
	assert.Equal(t, 100.0, Rescale(1.0000001))
	assert.Equal(t, 0.0, Rescale(-3))
}

func TestCosine(t *testing.T) {
	t.Parallel()
	a := []float32{1, 0, 0}
	assert.InDelta(t, 1.0, Cosine(a, []float32{2, 0, 0}), 1e-12)
	assert.InDelta(t, 0.0, Cosine(a, []float32{0, 3, 0}), 1e-12)
	assert.InDelta(t, -1.0, Cosine(a, []float32{-1, 0, 0}), 1e-12)
	assert.Equal(t, 0.0, Cosine(a, []float32{0, 0, 0}), "zero vector")
	assert.Equal(t, 0.0, Cosine(a, []float32{1, 0}), "length mismatch")
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestSemanticScore_Symmetric(t *testing.T) {
	t.Parallel()
	vecs := [][]float32{
		{0.1, 0.7, -0.3, 0.2},
		{-0.5, 0.5, 0.9, 0.0},
		{3, -1, 2, 8},
		{0, 0, 0, 0},
	}
	for i := range vecs {
		for j := range vecs {
			assert.Equal(t, SemanticScore(vecs[i], vecs[j]), SemanticScore(vecs[j], vecs[i]))
		}
	}
	assert.Equal(t, 50.0, SemanticScore(vecs[0], vecs[3]))
}

func TestOverall(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 1.0, SkillWeight+ExperienceWeight+SemanticWeight, 1e-12)
	assert.Equal(t, 0.5, SkillWeight)
	assert.Equal(t, 0.3, ExperienceWeight)
	assert.Equal(t, 0.2, SemanticWeight)

	assert.Equal(t, 100.0, Overall(100, 100, 100))
	assert.Equal(t, 0.0, Overall(0, 0, 0))
	assert.Equal(t, 50.0, Overall(100, 0, 0))
	assert.Equal(t, 30.0, Overall(0, 100, 0))
	assert.Equal(t, 20.0, Overall(0, 0, 100))
	assert.Equal(t, 66.67, Overall(66.666, 66.666, 66.666))
}

func TestOverall_ConvexCombination(t *testing.T) {
	t.Parallel()
	vals := []float64{0, 12.5, 20, 33.33, 50, 77.77, 80, 99.99, 100}
	for _, s := range vals {
		for _, e := range vals {
			for _, m := range vals {
				got := Overall(s, e, m)
				lo := math.Min(s, math.Min(e, m))
				hi := math.Max(s, math.Max(e, m))
				// rounding to two decimals may move the value by at most half a cent
				assert.GreaterOrEqual(t, got, lo-0.005)
				assert.LessOrEqual(t, got, hi+0.005)
			}
		}
	}
}
