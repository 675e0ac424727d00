package matching

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

// MaxSimilarityRunes caps the text fed to the encoder for pairwise similarity.
const MaxSimilarityRunes = 5000

// Scorer scores one candidate against one job.
type Scorer struct {
	enc domain.Encoder
}

// NewScorer builds a Scorer over enc.
func NewScorer(enc domain.Encoder) *Scorer { return &Scorer{enc: enc} }

// JobText is the descriptive text of a job used for pairwise similarity:
// title, description and requirements on separate lines.
func JobText(j domain.JobProfile) string {
	parts := []string{j.Title, j.Description}
	if strings.TrimSpace(j.Requirements) != "" {
		parts = append(parts, j.Requirements)
	}
	return strings.Join(parts, "\n")
}

// Match validates both profiles, embeds their texts in a single encoder call
// and returns the component and overall scores.
func (s *Scorer) Match(ctx domain.Context, c domain.CandidateProfile, j domain.JobProfile) (domain.MatchResult, error) {
	if err := c.Validate(); err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=matching.match: %w", err)
	}
	if err := j.Validate(); err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=matching.match: %w", err)
	}
	resumeText := textx.Truncate(c.Text, MaxSimilarityRunes)
	jobText := textx.Truncate(JobText(j), MaxSimilarityRunes)

	vecs, err := s.enc.Encode(ctx, []string{resumeText, jobText})
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=matching.match: %w", err)
	}
	if len(vecs) != 2 {
		return domain.MatchResult{}, fmt.Errorf("op=matching.match: %w: got %d vectors for 2 texts", domain.ErrEncoding, len(vecs))
	}

	skill := Round2(SkillScore(c.Skills, j.Skills))
	exp := Round2(ExperienceScore(c.ExperienceYears, j.Experience))
	sem := Round2(SemanticScore(vecs[0], vecs[1]))
	return domain.MatchResult{
		CandidateID:     c.ID,
		JobID:           j.ID,
		SkillScore:      skill,
		ExperienceScore: exp,
		SemanticScore:   sem,
		OverallScore:    Overall(skill, exp, sem),
		LowConfidence:   textx.IsBlank(resumeText) || textx.IsBlank(jobText),
	}, nil
}
