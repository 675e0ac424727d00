package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/usecase"
)

// Server aggregates handlers dependencies.
type Server struct {
	Cfg         config.Config
	Profiles    usecase.ProfileService
	Matches     usecase.MatchService
	Recommender *usecase.RecommendationService
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
	QdrantCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// Stored-profile endpoints read through the repositories held by profiles.
func NewServer(cfg config.Config, profiles usecase.ProfileService, matches usecase.MatchService, rec *usecase.RecommendationService, dbCheck func(context.Context) error, redisCheck func(context.Context) error, qdrantCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Profiles: profiles, Matches: matches, Recommender: rec, DBCheck: dbCheck, RedisCheck: redisCheck, QdrantCheck: qdrantCheck}
}

type matchRequest struct {
	Candidate usecase.CandidateInput `json:"candidate"`
	Job       usecase.JobInput       `json:"job"`
}

type recommendRequest struct {
	Job             usecase.JobInput         `json:"job"`
	Candidates      []usecase.CandidateInput `json:"candidates" validate:"max=10000,dive"`
	TopK            *int                     `json:"top_k" validate:"omitempty,gte=1,lte=1000"`
	MinScore        *float64                 `json:"min_score" validate:"omitempty,gte=0,lte=100"`
	IncludeOutreach bool                     `json:"include_outreach"`
}

// candidateView is the stored-profile representation returned by PUT /v1/candidates/{id}.
type candidateView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Skills          []string `json:"skills"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`
}

type jobView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Company       string   `json:"company,omitempty"`
	Location      string   `json:"location,omitempty"`
	Skills        []string `json:"skills"`
	ExperienceMin *float64 `json:"experience_min,omitempty"`
	ExperienceMax *float64 `json:"experience_max,omitempty"`
}

func toCandidateView(c domain.CandidateProfile) candidateView {
	return candidateView{ID: c.ID, Name: c.Name, Email: c.Email, Skills: c.Skills.Slice(), ExperienceYears: c.ExperienceYears}
}

func toJobView(j domain.JobProfile) jobView {
	return jobView{
		ID: j.ID, Title: j.Title, Company: j.Company, Location: j.Location, Skills: j.Skills.Slice(),
		ExperienceMin: j.Experience.Min, ExperienceMax: j.Experience.Max,
	}
}

// MatchHandler scores one submitted candidate against one submitted job.
func (s *Server) MatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		b := s.Profiles.Builder
		res, err := s.Matches.Match(r.Context(), b.BuildCandidateProfile(req.Candidate), b.BuildJobProfile(req.Job))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// RecommendHandler ranks a submitted candidate pool against a submitted job.
func (s *Server) RecommendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recommendRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		b := s.Profiles.Builder
		cands := make([]domain.CandidateProfile, len(req.Candidates))
		for i, in := range req.Candidates {
			cands[i] = b.BuildCandidateProfile(in)
		}
		topK := s.Cfg.RecommendDefaultTopK
		if req.TopK != nil {
			topK = *req.TopK
		}
		rec, err := s.Recommender.Recommend(r.Context(), usecase.RecommendRequest{
			Job:             b.BuildJobProfile(req.Job),
			Candidates:      cands,
			TopK:            topK,
			MinScore:        req.MinScore,
			IncludeOutreach: req.IncludeOutreach,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// StoredMatchHandler scores a stored candidate against a stored job and persists the result.
func (s *Server) StoredMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}
		candidateID, ok := pathID(w, r, "candidateID")
		if !ok {
			return
		}
		res, err := s.Matches.MatchStored(r.Context(), candidateID, jobID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// JobRecommendationsHandler ranks every stored candidate against a stored job.
func (s *Server) JobRecommendationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}
		q, verrs := parseRecommendQuery(r.URL.Query(), s.Cfg.RecommendDefaultTopK)
		if len(verrs) > 0 {
			writeError(w, r, fmt.Errorf("%w: invalid query", domain.ErrInvalidInput), verrs)
			return
		}
		ctx := r.Context()
		job, err := s.Profiles.Jobs.GetJob(ctx, jobID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		cands, err := s.Profiles.Candidates.ListCandidates(ctx)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		rec, err := s.Recommender.Recommend(ctx, usecase.RecommendRequest{
			Job: job, Candidates: cands, TopK: q.TopK, MinScore: q.MinScore, IncludeOutreach: q.IncludeOutreach,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// PutCandidateHandler stores a candidate under the id in the path.
func (s *Server) PutCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var in usecase.CandidateInput
		if !s.decodeBody(w, r, &in) {
			return
		}
		if in.ID != "" && in.ID != id {
			writeError(w, r, fmt.Errorf("%w: body id does not match path", domain.ErrInvalidInput), map[string]string{"id": "mismatch"})
			return
		}
		in.ID = id
		if !validate(w, r, in) {
			return
		}
		c, err := s.Profiles.SaveCandidate(r.Context(), in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCandidateView(c))
	}
}

// PutJobHandler stores a job under the id in the path.
func (s *Server) PutJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var in usecase.JobInput
		if !s.decodeBody(w, r, &in) {
			return
		}
		if in.ID != "" && in.ID != id {
			writeError(w, r, fmt.Errorf("%w: body id does not match path", domain.ErrInvalidInput), map[string]string{"id": "mismatch"})
			return
		}
		in.ID = id
		if !validate(w, r, in) {
			return
		}
		j, err := s.Profiles.SaveJob(r.Context(), in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toJobView(j))
	}
}

// ReadyzHandler returns a readiness handler that pings DB, Redis and Qdrant.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		deps := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}, {"qdrant", s.QdrantCheck}}

		checks := make([]check, 0, len(deps))
		ok := true
		for _, p := range deps {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: p.name, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// pathID reads and checks a chi URL parameter, writing a 400 when it is unusable.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if res := ValidateProfileID(name, id); !res.Valid {
		writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, res.Errors[0].Message), res.Errors)
		return "", false
	}
	return id, true
}
