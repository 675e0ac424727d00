package usecase

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/matching"
)

// MatchService scores single (candidate, job) pairs.
type MatchService struct {
	Scorer     *matching.Scorer
	Candidates domain.CandidateRepository
	Jobs       domain.JobRepository
	Results    domain.MatchResultRepository
}

// NewMatchService constructs a MatchService. The repositories are only
// needed by MatchStored and may be nil otherwise.
func NewMatchService(enc domain.Encoder, c domain.CandidateRepository, j domain.JobRepository, r domain.MatchResultRepository) MatchService {
	return MatchService{Scorer: matching.NewScorer(enc), Candidates: c, Jobs: j, Results: r}
}

// Match scores c against j without touching storage.
func (s MatchService) Match(ctx domain.Context, c domain.CandidateProfile, j domain.JobProfile) (domain.MatchResult, error) {
	ctx, span := otel.Tracer("usecase.match").Start(ctx, "match.Score")
	defer span.End()
	span.SetAttributes(attribute.String("candidate.id", c.ID), attribute.String("job.id", j.ID))

	res, err := s.Scorer.Match(ctx, c, j)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "match failed")
		return domain.MatchResult{}, err
	}
	observability.ObserveMatch(res.OverallScore)
	span.SetAttributes(attribute.Float64("match.overall", res.OverallScore), attribute.Bool("match.low_confidence", res.LowConfidence))
	if res.LowConfidence {
		observability.LoggerFromContext(ctx).Info("match scored on blank text",
			slog.String("candidate_id", c.ID), slog.String("job_id", j.ID))
	}
	return res, nil
}

// MatchStored loads both profiles by id, scores them and persists the result.
func (s MatchService) MatchStored(ctx domain.Context, candidateID, jobID string) (domain.MatchResult, error) {
	if candidateID == "" || jobID == "" {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.match_stored: %w: ids required", domain.ErrInvalidInput)
	}
	c, err := s.Candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.match_stored: %w", err)
	}
	j, err := s.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.match_stored: %w", err)
	}
	res, err := s.Match(ctx, c, j)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.match_stored: %w", err)
	}
	if err := s.Results.Upsert(ctx, res); err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=usecase.match_stored: %w", err)
	}
	return res, nil
}
