package usecase

import (
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/matching"
)

// Skip reasons reported in recommend_candidates_skipped_total.
const (
	skipInvalid  = "invalid_profile"
	skipEncoding = "encoding_failed"
	skipVector   = "unusable_vector"
)

// RecommendRequest asks for the best candidates for one job.
type RecommendRequest struct {
	Job        domain.JobProfile
	Candidates []domain.CandidateProfile
	TopK       int
	// MinScore is on the 0-100 scale; nil uses the service default.
	MinScore        *float64
	IncludeOutreach bool
}

// RecommendOptions tunes a RecommendationService.
type RecommendOptions struct {
	BatchSize       int
	Concurrency     int
	DefaultMinScore float64
}

// RecommendationService ranks a candidate pool against a job. It keeps no
// state between calls; the index is built per request and discarded.
type RecommendationService struct {
	enc      domain.Encoder
	outreach *OutreachWriter
	opts     RecommendOptions
}

// NewRecommendationService constructs the service. outreach may be nil when
// messages are never requested.
func NewRecommendationService(enc domain.Encoder, outreach *OutreachWriter, opts RecommendOptions) *RecommendationService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &RecommendationService{enc: enc, outreach: outreach, opts: opts}
}

// Recommend ranks req.Candidates by semantic similarity to req.Job. A single
// bad candidate never fails the call; it is skipped and counted.
func (s *RecommendationService) Recommend(ctx domain.Context, req RecommendRequest) (domain.Recommendation, error) {
	ctx, span := otel.Tracer("usecase.recommend").Start(ctx, "recommend.Rank")
	defer span.End()
	lg := observability.LoggerFromContext(ctx)

	if req.TopK < 1 {
		return domain.Recommendation{}, fmt.Errorf("op=usecase.recommend: %w: top_k must be at least 1", domain.ErrInvalidInput)
	}
	minScore := s.opts.DefaultMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	if math.IsNaN(minScore) || minScore < 0 || minScore > 100 {
		return domain.Recommendation{}, fmt.Errorf("op=usecase.recommend: %w: min_score must be within [0,100]", domain.ErrInvalidInput)
	}
	if err := req.Job.Validate(); err != nil {
		return domain.Recommendation{}, fmt.Errorf("op=usecase.recommend: %w", err)
	}
	span.SetAttributes(attribute.String("job.id", req.Job.ID), attribute.Int("candidates", len(req.Candidates)), attribute.Int("top_k", req.TopK))

	rec := domain.Recommendation{
		JobID:         req.Job.ID,
		JobTitle:      req.Job.Title,
		TotalScreened: len(req.Candidates),
		Candidates:    []domain.RankedCandidate{},
	}
	observability.ObserveRecommendation(len(req.Candidates))
	if len(req.Candidates) == 0 {
		return rec, nil
	}

	jobVecs, err := s.enc.Encode(ctx, []string{JobEmbeddingText(req.Job)})
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("op=usecase.recommend: job %s: %w", req.Job.ID, err)
	}
	if len(jobVecs) != 1 {
		return domain.Recommendation{}, fmt.Errorf("op=usecase.recommend: %w: got %d vectors for the job", domain.ErrEncoding, len(jobVecs))
	}

	valid := make([]domain.CandidateProfile, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		if err := c.Validate(); err != nil {
			lg.Warn("skipping invalid candidate", slog.String("candidate_id", c.ID), slog.Any("error", err))
			observability.RecordCandidateSkipped(skipInvalid, 1)
			continue
		}
		valid = append(valid, c)
	}

	vecs, err := s.encodeCandidates(ctx, valid)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("op=usecase.recommend: %w", err)
	}
	entries := make([]matching.IndexEntry, len(valid))
	for i, c := range valid {
		entries[i] = matching.IndexEntry{ID: c.ID, Vector: vecs[i]}
	}
	idx := matching.BuildIndex(s.enc.Dimension(), entries)
	if n := idx.Skipped(); n > 0 {
		// nil vectors from failed encodes are counted under encoding_failed already
		if unusable := n - countNil(vecs); unusable > 0 {
			observability.RecordCandidateSkipped(skipVector, unusable)
		}
	}

	hits := idx.Search(jobVecs[0], req.TopK, matching.WithMinScore(minScore))
	ranked := make([]domain.RankedCandidate, len(hits))
	var sum float64
	for i, h := range hits {
		c := valid[h.Position]
		ranked[i] = domain.RankedCandidate{
			CandidateID:     c.ID,
			Name:            c.Name,
			Email:           c.Email,
			Skills:          c.Skills.Slice(),
			ExperienceYears: c.ExperienceYears,
			SimilarityScore: h.Score,
			Rank:            i + 1,
		}
		sum += h.Score
	}
	if req.IncludeOutreach && len(ranked) > 0 {
		w := s.outreach
		if w == nil {
			w = NewOutreachWriter(nil, 1)
		}
		ranked = w.Enrich(ctx, req.Job, ranked)
	}

	rec.Candidates = ranked
	rec.ReturnedCount = len(ranked)
	if len(ranked) > 0 {
		rec.AverageScore = matching.Round2(sum / float64(len(ranked)))
	}
	span.SetAttributes(attribute.Int("returned", rec.ReturnedCount), attribute.Int("indexed", idx.Len()))
	lg.Info("recommendation built",
		slog.String("job_id", req.Job.ID),
		slog.Int("screened", rec.TotalScreened),
		slog.Int("indexed", idx.Len()),
		slog.Int("returned", rec.ReturnedCount),
		slog.Float64("min_score", minScore))
	return rec, nil
}

// encodeCandidates returns one vector per candidate, nil where encoding
// failed. Batches run concurrently; a failed batch is retried item by item
// so one bad text only costs its own slot. Only cancellation is fatal.
func (s *RecommendationService) encodeCandidates(ctx domain.Context, cands []domain.CandidateProfile) ([][]float32, error) {
	out := make([][]float32, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for start := 0; start < len(cands); start += s.opts.BatchSize {
		start := start
		end := min(start+s.opts.BatchSize, len(cands))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = CandidateEmbeddingText(cands[start+i])
			}
			vecs, err := s.enc.Encode(gctx, texts)
			if err == nil && len(vecs) == len(texts) {
				copy(out[start:end], vecs)
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			observability.LoggerFromContext(gctx).Warn("batch encode failed, retrying per candidate",
				slog.Int("batch_start", start), slog.Int("batch_size", len(texts)), slog.Any("error", err))
			for i, text := range texts {
				v, err := s.enc.Encode(gctx, []string{text})
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if err != nil || len(v) != 1 {
					observability.LoggerFromContext(gctx).Warn("skipping candidate that failed to encode",
						slog.String("candidate_id", cands[start+i].ID), slog.Any("error", err))
					observability.RecordCandidateSkipped(skipEncoding, 1)
					continue
				}
				out[start+i] = v[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func countNil(vecs [][]float32) int {
	n := 0
	for _, v := range vecs {
		if v == nil {
			n++
		}
	}
	return n
}
