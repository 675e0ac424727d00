package qdrant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

type recordingServer struct {
	mu       sync.Mutex
	paths    []string
	upserted map[string][]qdrant.Point
}

func (s *recordingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.paths = append(s.paths, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			var body struct {
				Points []qdrant.Point `json:"points"`
			}
			if r.ContentLength > 0 {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			}
			if s.upserted == nil {
				s.upserted = map[string][]qdrant.Point{}
			}
			s.upserted[r.URL.Path] = append(s.upserted[r.URL.Path], body.Points...)
			_, _ = w.Write([]byte(`{"result":true}`))
		}
	}
}

func TestEmbeddingStore_EnsureCollections(t *testing.T) {
	t.Parallel()
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	store := qdrant.NewEmbeddingStore(qdrant.New(srv.URL, ""), 4)
	require.NoError(t, store.EnsureCollections(context.Background()))
	assert.Equal(t, []string{
		"GET /collections/candidate_embeddings",
		"PUT /collections/candidate_embeddings",
		"GET /collections/job_embeddings",
		"PUT /collections/job_embeddings",
	}, rec.paths)
}

func TestEmbeddingStore_Put(t *testing.T) {
	t.Parallel()
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	store := qdrant.NewEmbeddingStore(qdrant.New(srv.URL, ""), 2)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, domain.EmbeddingCandidate, "r1", []float32{0.6, 0.8}, map[string]any{"name": "Jane"}))
	require.NoError(t, store.Put(ctx, domain.EmbeddingJob, "j1", []float32{1, 0}, nil))

	cands := rec.upserted["/collections/candidate_embeddings/points"]
	require.Len(t, cands, 1)
	assert.Equal(t, qdrant.PointID(domain.EmbeddingCandidate, "r1"), cands[0].ID)
	assert.Equal(t, "r1", cands[0].Payload["profile_id"])
	assert.Equal(t, "candidate", cands[0].Payload["kind"])
	assert.Equal(t, "Jane", cands[0].Payload["name"])
	require.Len(t, rec.upserted["/collections/job_embeddings/points"], 1)
}

func TestEmbeddingStore_PutRejects(t *testing.T) {
	t.Parallel()
	store := qdrant.NewEmbeddingStore(qdrant.New("http://127.0.0.1:1", ""), 2)
	ctx := context.Background()

	err := store.Put(ctx, domain.EmbeddingCandidate, "r1", []float32{1, 2, 3}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = store.Put(ctx, domain.EmbeddingKind("company"), "c1", []float32{1, 2}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = store.Put(ctx, domain.EmbeddingJob, "", []float32{1, 2}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPointID(t *testing.T) {
	t.Parallel()
	a := qdrant.PointID(domain.EmbeddingCandidate, "42")
	assert.Equal(t, a, qdrant.PointID(domain.EmbeddingCandidate, "42"))
	assert.NotEqual(t, a, qdrant.PointID(domain.EmbeddingJob, "42"))
	assert.Len(t, a, 36)
}
