package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// axisEncoder maps each vocabulary word to one axis and counts occurrences,
// so cosine scores in tests can be worked out by hand.
type axisEncoder struct {
	vocab  []string
	poison string

	mu    sync.Mutex
	calls [][]string
}

func newAxisEncoder(vocab ...string) *axisEncoder { return &axisEncoder{vocab: vocab} }

func (e *axisEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.calls = append(e.calls, texts)
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		words := strings.FieldsFunc(strings.ToLower(t), func(r rune) bool { return !unicode.IsLetter(r) })
		v := make([]float32, len(e.vocab))
		for _, w := range words {
			if e.poison != "" && w == e.poison {
				return nil, errors.Join(domain.ErrEncoding, errors.New("poisoned text"))
			}
			for j, term := range e.vocab {
				if w == term {
					v[j]++
				}
			}
		}
		out[i] = v
	}
	return out, nil
}

func (e *axisEncoder) Dimension() int { return len(e.vocab) }
func (e *axisEncoder) Model() string  { return "axis" }

func (e *axisEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) SaveCandidate(ctx context.Context, c domain.CandidateProfile) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockProfiles) GetCandidate(ctx context.Context, id string) (domain.CandidateProfile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CandidateProfile), args.Error(1)
}

func (m *mockProfiles) ListCandidates(ctx context.Context) ([]domain.CandidateProfile, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]domain.CandidateProfile)
	return cs, args.Error(1)
}

func (m *mockProfiles) SaveJob(ctx context.Context, j domain.JobProfile) error {
	return m.Called(ctx, j).Error(0)
}

func (m *mockProfiles) GetJob(ctx context.Context, id string) (domain.JobProfile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.JobProfile), args.Error(1)
}

func (m *mockProfiles) ListJobs(ctx context.Context) ([]domain.JobProfile, error) {
	args := m.Called(ctx)
	js, _ := args.Get(0).([]domain.JobProfile)
	return js, args.Error(1)
}

type mockResults struct{ mock.Mock }

func (m *mockResults) Upsert(ctx context.Context, r domain.MatchResult) error {
	return m.Called(ctx, r).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishProfileEvent(ctx context.Context, ev domain.ProfileEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type memStore struct {
	mu   sync.Mutex
	vecs map[string][]float32
	fail map[string]error
}

func (s *memStore) Put(_ context.Context, kind domain.EmbeddingKind, id string, vec []float32, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[id]; err != nil {
		return err
	}
	if s.vecs == nil {
		s.vecs = map[string][]float32{}
	}
	s.vecs[string(kind)+":"+id] = vec
	return nil
}

type stubGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func f64(v float64) *float64 { return &v }
