package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// ProfileRepo stores candidate and job profiles. It implements both
// domain.CandidateRepository and domain.JobRepository.
type ProfileRepo struct{ Pool PgxPool }

// NewProfileRepo constructs a ProfileRepo with the given pool.
func NewProfileRepo(p PgxPool) *ProfileRepo { return &ProfileRepo{Pool: p} }

const (
	candidateColumns = `id, name, email, raw_text, skills, experience_years`
	jobColumns       = `id, title, company, description, requirements, location, required_skills, experience_min, experience_max`
)

// SaveCandidate inserts or replaces a candidate.
func (r *ProfileRepo) SaveCandidate(ctx domain.Context, c domain.CandidateProfile) error {
	ctx, span := otel.Tracer("repo.profiles").Start(ctx, "candidates.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", "candidates"),
	)
	q := `INSERT INTO candidates (` + candidateColumns + `, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, raw_text=EXCLUDED.raw_text,
	skills=EXCLUDED.skills, experience_years=EXCLUDED.experience_years, updated_at=EXCLUDED.updated_at`
	if _, err := r.Pool.Exec(ctx, q, c.ID, c.Name, c.Email, c.Text, c.Skills.Slice(), c.ExperienceYears, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=candidate.save: %w", err)
	}
	return nil
}

// GetCandidate loads one candidate by id.
func (r *ProfileRepo) GetCandidate(ctx domain.Context, id string) (domain.CandidateProfile, error) {
	ctx, span := otel.Tracer("repo.profiles").Start(ctx, "candidates.Get")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("db.sql.table", "candidates"))
	q := `SELECT ` + candidateColumns + ` FROM candidates WHERE id=$1`
	c, err := scanCandidate(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CandidateProfile{}, fmt.Errorf("op=candidate.get: %w: candidate %s", domain.ErrNotFound, id)
		}
		return domain.CandidateProfile{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	return c, nil
}

// ListCandidates returns every candidate ordered by id.
func (r *ProfileRepo) ListCandidates(ctx domain.Context) ([]domain.CandidateProfile, error) {
	ctx, span := otel.Tracer("repo.profiles").Start(ctx, "candidates.List")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("db.sql.table", "candidates"))
	rows, err := r.Pool.Query(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	defer rows.Close()
	var out []domain.CandidateProfile
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

// SaveJob inserts or replaces a job.
func (r *ProfileRepo) SaveJob(ctx domain.Context, j domain.JobProfile) error {
	ctx, span := otel.Tracer("repo.profiles").Start(ctx, "jobs.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", "jobs"),
	)
	q := `INSERT INTO jobs (` + jobColumns + `, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, company=EXCLUDED.company, description=EXCLUDED.description,
	requirements=EXCLUDED.requirements, location=EXCLUDED.location, required_skills=EXCLUDED.required_skills,
	experience_min=EXCLUDED.experience_min, experience_max=EXCLUDED.experience_max, updated_at=EXCLUDED.updated_at`
	_, err := r.Pool.Exec(ctx, q, j.ID, j.Title, j.Company, j.Description, j.Requirements, j.Location,
		j.Skills.Slice(), j.Experience.Min, j.Experience.Max, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=job.save: %w", err)
	}
	return nil
}

// GetJob loads one job by id.
func (r *ProfileRepo) GetJob(ctx domain.Context, id string) (domain.JobProfile, error) {
	ctx, span := otel.Tracer("repo.profiles").Start(ctx, "jobs.Get")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("db.sql.table", "jobs"))
	j, err := scanJob(r.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JobProfile{}, fmt.Errorf("op=job.get: %w: job %s", domain.ErrNotFound, id)
		}
		return domain.JobProfile{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// ListJobs returns every job ordered by id.
func (r *ProfileRepo) ListJobs(ctx domain.Context) ([]domain.JobProfile, error) {
	ctx, span := otel.Tracer("repo.profiles").Start(ctx, "jobs.List")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("db.sql.table", "jobs"))
	rows, err := r.Pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	defer rows.Close()
	var out []domain.JobProfile
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("op=job.list: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func scanCandidate(row pgx.Row) (domain.CandidateProfile, error) {
	var c domain.CandidateProfile
	var skills []string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Text, &skills, &c.ExperienceYears); err != nil {
		return domain.CandidateProfile{}, err
	}
	c.Skills = domain.NewSkillSet(skills...)
	return c, nil
}

func scanJob(row pgx.Row) (domain.JobProfile, error) {
	var j domain.JobProfile
	var skills []string
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &j.Requirements, &j.Location,
		&skills, &j.Experience.Min, &j.Experience.Max); err != nil {
		return domain.JobProfile{}, err
	}
	j.Skills = domain.NewSkillSet(skills...)
	return j, nil
}
