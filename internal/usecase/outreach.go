package usecase

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

// OutreachWriter drafts recruiter outreach emails for ranked candidates.
type OutreachWriter struct {
	gen         domain.TextGenerator
	concurrency int
}

// NewOutreachWriter builds a writer over gen. A nil gen always yields the static message.
func NewOutreachWriter(gen domain.TextGenerator, concurrency int) *OutreachWriter {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &OutreachWriter{gen: gen, concurrency: concurrency}
}

func formatScore(s float64) string { return strconv.FormatFloat(s, 'f', -1, 64) }

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

// OutreachPrompt is the instruction sent to the text generator.
func OutreachPrompt(j domain.JobProfile, c domain.RankedCandidate) string {
	return fmt.Sprintf(`Write a personalized, professional outreach email to a candidate for a job opportunity.

**Job Details:**
Position: %s
Company: %s
Job Description (excerpt): %s

**Candidate Information:**
Name: %s
Relevant Skills: %s
Match Score: %s%%

Write a compelling, personalized email that:
1. Addresses the candidate by name
2. Mentions specific skills that make them a great fit
3. Briefly describes the role and company
4. Expresses genuine interest in their background
5. Includes a clear call-to-action
6. Keeps professional yet friendly tone
7. Length: 150-200 words

Format as plain text email (no HTML, no subject line - body only).
`, j.Title, j.Company, textx.Truncate(j.Description, 300), greetingName(c.Name),
		strings.Join(firstN(c.Skills, 10), ", "), formatScore(c.SimilarityScore))
}

// FallbackOutreach is the static message used when generation is unavailable.
func FallbackOutreach(j domain.JobProfile, c domain.RankedCandidate) string {
	background := "your background"
	if len(c.Skills) > 0 {
		background += " in " + strings.Join(firstN(c.Skills, 3), ", ")
	}
	return fmt.Sprintf(`Hi %s,

I came across your profile and was impressed by %s.

We have an exciting opportunity for a %s position at %s that I think would be a great match for your skills and experience. With a %s%% compatibility score, you're among our top candidates.

Would you be interested in learning more about this opportunity? I'd love to schedule a brief call to discuss how your expertise could contribute to our team.

Looking forward to hearing from you!

Best regards`, greetingName(c.Name), background, j.Title, j.Company, formatScore(c.SimilarityScore))
}

// Write drafts one message. It never fails: any generation error yields the fallback.
func (w *OutreachWriter) Write(ctx domain.Context, j domain.JobProfile, c domain.RankedCandidate) string {
	if w.gen == nil {
		observability.RecordOutreachFallback()
		return FallbackOutreach(j, c)
	}
	msg, err := w.gen.Generate(ctx, OutreachPrompt(j, c))
	if err == nil && !textx.IsBlank(msg) {
		return strings.TrimSpace(msg)
	}
	if err == nil {
		err = fmt.Errorf("%w: empty message", domain.ErrGeneration)
	}
	observability.RecordOutreachFallback()
	observability.LoggerFromContext(ctx).Warn("outreach generation failed, using fallback",
		slog.String("candidate_id", c.CandidateID), slog.String("job_id", j.ID), slog.Any("error", err))
	return FallbackOutreach(j, c)
}

// Enrich returns a copy of ranked with OutreachMessage filled in. The input is not modified.
func (w *OutreachWriter) Enrich(ctx domain.Context, j domain.JobProfile, ranked []domain.RankedCandidate) []domain.RankedCandidate {
	out := make([]domain.RankedCandidate, len(ranked))
	copy(out, ranked)
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			out[i].OutreachMessage = w.Write(ctx, j, out[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}
