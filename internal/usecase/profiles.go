// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/extract"
	"github.com/fairyhunter13/talent-matcher/pkg/textx"
)

// MaxResumeEmbeddingRunes caps the raw resume text that goes into a candidate embedding.
const MaxResumeEmbeddingRunes = 2000

// CandidateInput is a resume as submitted. Declared fields win over extracted ones.
type CandidateInput struct {
	ID              string   `json:"id" validate:"required,max=128"`
	Name            string   `json:"name" validate:"max=256"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Text            string   `json:"text"`
	Skills          []string `json:"skills" validate:"max=500,dive,max=100"`
	ExperienceYears *float64 `json:"experience_years" validate:"omitempty,gte=0,lte=80"`
}

// JobInput is a job posting as submitted. Declared fields win over extracted ones.
type JobInput struct {
	ID            string   `json:"id" validate:"required,max=128"`
	Title         string   `json:"title" validate:"max=256"`
	Company       string   `json:"company" validate:"max=256"`
	Description   string   `json:"description"`
	Requirements  string   `json:"requirements"`
	Location      string   `json:"location" validate:"max=256"`
	Skills        []string `json:"skills" validate:"max=500,dive,max=100"`
	ExperienceMin *float64 `json:"experience_min" validate:"omitempty,gte=0,lte=80"`
	ExperienceMax *float64 `json:"experience_max" validate:"omitempty,gte=0,lte=80"`
}

// ProfileBuilder turns submitted text into matching profiles.
type ProfileBuilder struct {
	skills *extract.SkillExtractor
}

// NewProfileBuilder builds a ProfileBuilder that recognizes the given skills.
func NewProfileBuilder(skills []string) *ProfileBuilder {
	return &ProfileBuilder{skills: extract.NewSkillExtractor(skills)}
}

// BuildCandidateProfile merges declared fields with what can be read from the resume text.
func (b *ProfileBuilder) BuildCandidateProfile(in CandidateInput) domain.CandidateProfile {
	text := textx.SanitizeText(in.Text)
	skills := b.skills.Extract(text)
	for _, s := range in.Skills {
		if n := domain.NormalizeSkill(s); n != "" {
			skills[n] = struct{}{}
		}
	}
	c := domain.CandidateProfile{
		ID:              strings.TrimSpace(in.ID),
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.TrimSpace(in.Email),
		Skills:          skills,
		ExperienceYears: in.ExperienceYears,
		Text:            text,
	}
	if c.Name == "" {
		c.Name = extract.Name(text)
	}
	if c.Email == "" {
		c.Email = extract.Email(text)
	}
	if c.ExperienceYears == nil {
		c.ExperienceYears = extract.ResumeYears(text)
	}
	return c
}

// BuildJobProfile merges declared fields with what can be read from the posting text.
func (b *ProfileBuilder) BuildJobProfile(in JobInput) domain.JobProfile {
	desc := textx.SanitizeText(in.Description)
	reqs := textx.SanitizeText(in.Requirements)
	body := desc + "\n" + reqs
	skills := domain.NewSkillSet(in.Skills...)
	if skills.Len() == 0 {
		skills = b.skills.Extract(body)
	}
	exp := domain.ExperienceRange{Min: in.ExperienceMin, Max: in.ExperienceMax}
	if exp.Min == nil && exp.Max == nil {
		exp = extract.JobExperience(body)
	}
	return domain.JobProfile{
		ID:           strings.TrimSpace(in.ID),
		Title:        strings.TrimSpace(in.Title),
		Company:      strings.TrimSpace(in.Company),
		Description:  desc,
		Requirements: reqs,
		Location:     strings.TrimSpace(in.Location),
		Skills:       skills,
		Experience:   exp,
	}
}

// CandidateEmbeddingText is the text embedded for a candidate in recommendations:
// name, the head of the resume, skills and years.
func CandidateEmbeddingText(c domain.CandidateProfile) string {
	var b strings.Builder
	if c.Name != "" {
		b.WriteString(c.Name)
		b.WriteByte('\n')
	}
	b.WriteString(textx.Truncate(c.Text, MaxResumeEmbeddingRunes))
	if c.Skills.Len() > 0 {
		b.WriteString("\nSkills: ")
		b.WriteString(strings.Join(c.Skills.Slice(), ", "))
	}
	if c.ExperienceYears != nil && *c.ExperienceYears > 0 {
		b.WriteString("\nExperience: ")
		b.WriteString(strconv.FormatFloat(*c.ExperienceYears, 'f', -1, 64))
		b.WriteString(" years")
	}
	return b.String()
}

// JobEmbeddingText is the text embedded for a job in recommendations.
func JobEmbeddingText(j domain.JobProfile) string {
	var b strings.Builder
	b.WriteString(j.Title)
	b.WriteByte('\n')
	b.WriteString(j.Description)
	if j.Requirements != "" {
		b.WriteString("\n" + j.Requirements)
	}
	if j.Skills.Len() > 0 {
		b.WriteString("\nRequired skills: " + strings.Join(j.Skills.Slice(), ", "))
	}
	if j.Location != "" {
		b.WriteString("\nLocation: " + j.Location)
	}
	return b.String()
}

// ProfileService stores profiles and announces changes so embeddings get refreshed.
type ProfileService struct {
	Builder    *ProfileBuilder
	Candidates domain.CandidateRepository
	Jobs       domain.JobRepository
	Events     domain.EventPublisher
}

// NewProfileService constructs a ProfileService. events may be nil, in which
// case stored vectors are only refreshed by a full reindex.
func NewProfileService(b *ProfileBuilder, c domain.CandidateRepository, j domain.JobRepository, events domain.EventPublisher) ProfileService {
	return ProfileService{Builder: b, Candidates: c, Jobs: j, Events: events}
}

// SaveCandidate builds, validates and stores a candidate.
func (s ProfileService) SaveCandidate(ctx domain.Context, in CandidateInput) (domain.CandidateProfile, error) {
	c := s.Builder.BuildCandidateProfile(in)
	if err := c.Validate(); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=usecase.save_candidate: %w", err)
	}
	if err := s.Candidates.SaveCandidate(ctx, c); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("op=usecase.save_candidate: %w", err)
	}
	s.announce(ctx, domain.ProfileEvent{Kind: domain.EmbeddingCandidate, ID: c.ID})
	return c, nil
}

// SaveJob builds, validates and stores a job.
func (s ProfileService) SaveJob(ctx domain.Context, in JobInput) (domain.JobProfile, error) {
	j := s.Builder.BuildJobProfile(in)
	if err := j.Validate(); err != nil {
		return domain.JobProfile{}, fmt.Errorf("op=usecase.save_job: %w", err)
	}
	if err := s.Jobs.SaveJob(ctx, j); err != nil {
		return domain.JobProfile{}, fmt.Errorf("op=usecase.save_job: %w", err)
	}
	s.announce(ctx, domain.ProfileEvent{Kind: domain.EmbeddingJob, ID: j.ID})
	return j, nil
}

// announce is best-effort: the profile is already stored.
func (s ProfileService) announce(ctx domain.Context, ev domain.ProfileEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishProfileEvent(ctx, ev); err != nil {
		observability.LoggerFromContext(ctx).Warn("profile event not published; vector stays stale until reindex",
			slog.String("kind", string(ev.Kind)), slog.String("profile_id", ev.ID), slog.Any("error", err))
	}
}
