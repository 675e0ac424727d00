package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEncoding          = errors.New("encoding failed")
	ErrGeneration        = errors.New("generation failed")
	ErrNotFound          = errors.New("not found")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrInternal          = errors.New("internal error")
)

// SkillSet is a set of normalized (trimmed, lower-cased) skill names.
type SkillSet map[string]struct{}

// NewSkillSet normalizes skills into a set. Blank entries are dropped.
func NewSkillSet(skills ...string) SkillSet {
	s := make(SkillSet, len(skills))
	for _, sk := range skills {
		if n := NormalizeSkill(sk); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// NormalizeSkill trims and lower-cases a skill name.
func NormalizeSkill(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Has reports whether the set contains skill (normalized before lookup).
func (s SkillSet) Has(skill string) bool {
	_, ok := s[NormalizeSkill(skill)]
	return ok
}

// Len returns the number of distinct skills.
func (s SkillSet) Len() int { return len(s) }

// Slice returns the skills sorted ascending.
func (s SkillSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExperienceRange is the years-of-experience window a job asks for.
// A nil Max means the range is open-ended.
type ExperienceRange struct {
	Min *float64
	Max *float64
}

// CandidateProfile is an immutable snapshot of a parsed resume.
type CandidateProfile struct {
	ID              string
	Name            string
	Email           string
	Skills          SkillSet
	ExperienceYears *float64
	Text            string
}

// Validate rejects malformed profiles before they reach scoring.
func (c CandidateProfile) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: candidate id required", ErrInvalidInput)
	}
	if c.ExperienceYears != nil && !validYears(*c.ExperienceYears) {
		return fmt.Errorf("%w: candidate %s experience years %v", ErrInvalidInput, c.ID, *c.ExperienceYears)
	}
	return nil
}

// JobProfile is the matching view of a job posting.
type JobProfile struct {
	ID           string
	Title        string
	Company      string
	Description  string
	Requirements string
	Location     string
	Skills       SkillSet
	Experience   ExperienceRange
}

// Validate rejects malformed job profiles.
func (j JobProfile) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("%w: job id required", ErrInvalidInput)
	}
	r := j.Experience
	if r.Min != nil && !validYears(*r.Min) {
		return fmt.Errorf("%w: job %s minimum years %v", ErrInvalidInput, j.ID, *r.Min)
	}
	if r.Max != nil && !validYears(*r.Max) {
		return fmt.Errorf("%w: job %s maximum years %v", ErrInvalidInput, j.ID, *r.Max)
	}
	if r.Min != nil && r.Max != nil && *r.Max < *r.Min {
		return fmt.Errorf("%w: job %s maximum years below minimum", ErrInvalidInput, j.ID)
	}
	return nil
}

func validYears(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 }

// MatchResult holds the component and overall scores for one (candidate, job) pair.
// All scores are in [0,100]. LowConfidence is set when either text was blank.
type MatchResult struct {
	CandidateID     string  `json:"candidate_id"`
	JobID           string  `json:"job_id"`
	SkillScore      float64 `json:"skill_match_score"`
	ExperienceScore float64 `json:"experience_match_score"`
	SemanticScore   float64 `json:"semantic_similarity_score"`
	OverallScore    float64 `json:"overall_match_score"`
	LowConfidence   bool    `json:"low_confidence"`
}

// RankedCandidate is one entry of a recommendation list.
type RankedCandidate struct {
	CandidateID     string   `json:"resume_id"`
	Name            string   `json:"candidate_name,omitempty"`
	Email           string   `json:"candidate_email,omitempty"`
	Skills          []string `json:"skills"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`
	SimilarityScore float64  `json:"similarity_score"`
	Rank            int      `json:"rank"`
	OutreachMessage string   `json:"outreach_message,omitempty"`
}

// Recommendation is the result of ranking a candidate pool against one job.
type Recommendation struct {
	JobID         string            `json:"job_id"`
	JobTitle      string            `json:"job_title"`
	TotalScreened int               `json:"total_candidates_screened"`
	ReturnedCount int               `json:"recommendations_count"`
	AverageScore  float64           `json:"average_match_score"`
	Candidates    []RankedCandidate `json:"top_candidates"`
}

// Encoder (port) turns text into fixed-length embedding vectors.
// Implementations must be deterministic for a given model and safe for concurrent use.
type Encoder interface {
	// Encode returns one vector per input text, in order.
	Encode(ctx Context, texts []string) ([][]float32, error)
	// Dimension is the length of every vector this encoder produces.
	Dimension() int
	// Model identifies the model version; part of cache keys.
	Model() string
}

// TextGenerator (port) is an external generative text provider.
type TextGenerator interface {
	Generate(ctx Context, prompt string) (string, error)
}

// Repositories (ports)

type CandidateRepository interface {
	SaveCandidate(ctx Context, c CandidateProfile) error
	GetCandidate(ctx Context, id string) (CandidateProfile, error)
	ListCandidates(ctx Context) ([]CandidateProfile, error)
}

type JobRepository interface {
	SaveJob(ctx Context, j JobProfile) error
	GetJob(ctx Context, id string) (JobProfile, error)
	ListJobs(ctx Context) ([]JobProfile, error)
}

type MatchResultRepository interface {
	Upsert(ctx Context, r MatchResult) error
}

// EmbeddingKind distinguishes candidate and job vectors in an EmbeddingStore.
type EmbeddingKind string

const (
	EmbeddingCandidate EmbeddingKind = "candidate"
	EmbeddingJob       EmbeddingKind = "job"
)

// EmbeddingStore (port) persists embedding vectors owned by profiles.
// A stored vector is replaced wholesale, never patched.
type EmbeddingStore interface {
	Put(ctx Context, kind EmbeddingKind, id string, vec []float32, payload map[string]any) error
}

// ProfileEvent announces that a profile's source text changed.
type ProfileEvent struct {
	Kind EmbeddingKind `json:"kind"`
	ID   string        `json:"id"`
}

// EventPublisher (port) announces profile changes to asynchronous consumers.
type EventPublisher interface {
	PublishProfileEvent(ctx Context, ev ProfileEvent) error
}

// Context is an alias so ports don't spell out the std package everywhere.
type Context = context.Context
