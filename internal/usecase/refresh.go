package usecase

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// RefreshStats summarizes a full re-embedding run.
type RefreshStats struct {
	JobsUpdated       int      `json:"jobs_updated"`
	CandidatesUpdated int      `json:"resumes_updated"`
	Errors            []string `json:"errors"`
}

// EmbeddingRefresher recomputes stored embeddings from profile repositories.
type EmbeddingRefresher struct {
	Encoder     domain.Encoder
	Candidates  domain.CandidateRepository
	Jobs        domain.JobRepository
	Store       domain.EmbeddingStore
	Concurrency int
}

// NewEmbeddingRefresher constructs an EmbeddingRefresher.
func NewEmbeddingRefresher(enc domain.Encoder, c domain.CandidateRepository, j domain.JobRepository, store domain.EmbeddingStore, concurrency int) EmbeddingRefresher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return EmbeddingRefresher{Encoder: enc, Candidates: c, Jobs: j, Store: store, Concurrency: concurrency}
}

// RefreshAll re-embeds every job and candidate. Per-record failures are
// collected in Errors; only cancellation aborts the run.
func (r EmbeddingRefresher) RefreshAll(ctx domain.Context) (RefreshStats, error) {
	stats := RefreshStats{Errors: []string{}}
	var mu sync.Mutex
	fail := func(msg string) {
		mu.Lock()
		stats.Errors = append(stats.Errors, msg)
		mu.Unlock()
	}

	jobs, err := r.Jobs.ListJobs(ctx)
	if err != nil {
		fail(fmt.Sprintf("job batch update failed: %v", err))
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := r.putJob(gctx, j); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fail(fmt.Sprintf("job %s: %v", j.ID, err))
				return nil
			}
			mu.Lock()
			stats.JobsUpdated++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("op=usecase.refresh_all: %w", err)
	}

	cands, err := r.Candidates.ListCandidates(ctx)
	if err != nil {
		fail(fmt.Sprintf("resume batch update failed: %v", err))
	}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	for _, c := range cands {
		c := c
		g.Go(func() error {
			if err := r.putCandidate(gctx, c); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fail(fmt.Sprintf("resume %s: %v", c.ID, err))
				return nil
			}
			mu.Lock()
			stats.CandidatesUpdated++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("op=usecase.refresh_all: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("embeddings refreshed",
		slog.Int("jobs_updated", stats.JobsUpdated),
		slog.Int("resumes_updated", stats.CandidatesUpdated),
		slog.Int("errors", len(stats.Errors)))
	return stats, nil
}

// RefreshOne re-embeds the profile named by ev. It is the profile event handler.
func (r EmbeddingRefresher) RefreshOne(ctx domain.Context, ev domain.ProfileEvent) error {
	switch ev.Kind {
	case domain.EmbeddingCandidate:
		c, err := r.Candidates.GetCandidate(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("op=usecase.refresh_one: %w", err)
		}
		return r.putCandidate(ctx, c)
	case domain.EmbeddingJob:
		j, err := r.Jobs.GetJob(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("op=usecase.refresh_one: %w", err)
		}
		return r.putJob(ctx, j)
	default:
		return fmt.Errorf("op=usecase.refresh_one: %w: unknown kind %q", domain.ErrInvalidInput, ev.Kind)
	}
}

func (r EmbeddingRefresher) putJob(ctx domain.Context, j domain.JobProfile) error {
	payload := map[string]any{"title": j.Title, "company": j.Company, "model": r.Encoder.Model()}
	err := r.put(ctx, domain.EmbeddingJob, j.ID, JobEmbeddingText(j), payload)
	observability.RecordEmbeddingRefresh(string(domain.EmbeddingJob), statusOf(err))
	return err
}

func (r EmbeddingRefresher) putCandidate(ctx domain.Context, c domain.CandidateProfile) error {
	payload := map[string]any{"name": c.Name, "skills": c.Skills.Slice(), "model": r.Encoder.Model()}
	err := r.put(ctx, domain.EmbeddingCandidate, c.ID, CandidateEmbeddingText(c), payload)
	observability.RecordEmbeddingRefresh(string(domain.EmbeddingCandidate), statusOf(err))
	return err
}

func (r EmbeddingRefresher) put(ctx domain.Context, kind domain.EmbeddingKind, id, text string, payload map[string]any) error {
	vecs, err := r.Encoder.Encode(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("op=usecase.refresh: encode %s %s: %w", kind, id, err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("op=usecase.refresh: %w: got %d vectors", domain.ErrEncoding, len(vecs))
	}
	if err := r.Store.Put(ctx, kind, id, vecs[0], payload); err != nil {
		return fmt.Errorf("op=usecase.refresh: store %s %s: %w", kind, id, err)
	}
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
