// Package matching holds the scoring calculators and the in-memory
// similarity index used to rank candidates against a job.
package matching

import (
	"math"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Component weights of the overall match score. They sum to 1.
const (
	SkillWeight      = 0.5
	ExperienceWeight = 0.3
	SemanticWeight   = 0.2
)

// Neutral experience score used when the candidate's years are unknown.
const neutralExperience = 50.0

// SkillScore returns the share of job skills present in the resume, in [0,100].
// Either set being empty yields 0.
func SkillScore(resume, job domain.SkillSet) float64 {
	if resume.Len() == 0 || job.Len() == 0 {
		return 0
	}
	hit := 0
	for s := range job {
		if resume.Has(s) {
			hit++
		}
	}
	return clamp(float64(hit) / float64(job.Len()) * 100)
}

// ExperienceScore rates years of experience against a job's range.
//
//	unknown years            -> 50
//	no minimum               -> 100
//	min <= years (<= max)    -> 100
//	years > max              -> max(80, 100 - min((years-max)*5, 20))
//	years < min              -> max(20, 100 - min((min-years)*20, 80))
func ExperienceScore(years *float64, r domain.ExperienceRange) float64 {
	if years == nil {
		return neutralExperience
	}
	if r.Min == nil {
		return 100
	}
	y, lo := *years, *r.Min
	switch {
	case y < lo:
		return math.Max(20, 100-math.Min((lo-y)*20, 80))
	case r.Max != nil && y > *r.Max:
		return math.Max(80, 100-math.Min((y-*r.Max)*5, 20))
	default:
		return 100
	}
}

// Rescale maps a cosine similarity in [-1,1] onto [0,100].
func Rescale(cos float64) float64 { return clamp((cos + 1) * 50) }

// SemanticScore is the rescaled cosine similarity of two embeddings.
// Mismatched lengths or a zero vector count as orthogonal (50).
func SemanticScore(a, b []float32) float64 { return Rescale(Cosine(a, b)) }

// Cosine computes the cosine similarity of a and b in float64.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// float error can push |c| past 1
	return math.Max(-1, math.Min(1, c))
}

// Overall combines the three component scores with the fixed weights,
// rounded to two decimals.
func Overall(skill, experience, semantic float64) float64 {
	return Round2(clamp(skill*SkillWeight + experience*ExperienceWeight + semantic*SemanticWeight))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
