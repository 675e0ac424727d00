package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// MatchResultRepo persists scored (candidate, job) pairs.
type MatchResultRepo struct{ Pool PgxPool }

// NewMatchResultRepo constructs a MatchResultRepo with the given pool.
func NewMatchResultRepo(p PgxPool) *MatchResultRepo { return &MatchResultRepo{Pool: p} }

// Upsert inserts or replaces the result for its (candidate, job) pair.
func (r *MatchResultRepo) Upsert(ctx domain.Context, res domain.MatchResult) error {
	ctx, span := otel.Tracer("repo.match_results").Start(ctx, "match_results.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", "match_results"),
	)
	q := `INSERT INTO match_results (candidate_id, job_id, skill_match_score, experience_match_score,
	semantic_similarity_score, overall_match_score, low_confidence, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (candidate_id, job_id)
	DO UPDATE SET skill_match_score=EXCLUDED.skill_match_score, experience_match_score=EXCLUDED.experience_match_score,
	semantic_similarity_score=EXCLUDED.semantic_similarity_score, overall_match_score=EXCLUDED.overall_match_score,
	low_confidence=EXCLUDED.low_confidence, updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, res.CandidateID, res.JobID, res.SkillScore, res.ExperienceScore,
		res.SemanticScore, res.OverallScore, res.LowConfidence, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=match_result.upsert: %w", err)
	}
	return nil
}
