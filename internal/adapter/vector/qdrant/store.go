package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Collection names per embedding kind.
const (
	CandidateCollection = "candidate_embeddings"
	JobCollection       = "job_embeddings"
)

// pointNamespace scopes deterministic point ids to this service.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("talent-matcher/embeddings"))

// EmbeddingStore implements domain.EmbeddingStore with one collection per kind.
type EmbeddingStore struct {
	client *Client
	dim    int
}

// NewEmbeddingStore returns a store for vectors of length dim.
func NewEmbeddingStore(client *Client, dim int) *EmbeddingStore {
	return &EmbeddingStore{client: client, dim: dim}
}

// EnsureCollections creates the candidate and job collections when missing.
func (s *EmbeddingStore) EnsureCollections(ctx context.Context) error {
	for _, name := range []string{CandidateCollection, JobCollection} {
		if err := s.client.EnsureCollection(ctx, name, s.dim, "Cosine"); err != nil {
			return err
		}
		slog.Debug("qdrant collection ready", slog.String("collection", name), slog.Int("dim", s.dim))
	}
	return nil
}

// Put replaces the vector stored for (kind, id).
func (s *EmbeddingStore) Put(ctx context.Context, kind domain.EmbeddingKind, id string, vec []float32, payload map[string]any) error {
	collection, err := CollectionFor(kind)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("op=qdrant.put: %w: empty id", domain.ErrInvalidInput)
	}
	if len(vec) != s.dim {
		return fmt.Errorf("op=qdrant.put: %w: vector length %d, want %d", domain.ErrInvalidInput, len(vec), s.dim)
	}
	p := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		p[k] = v
	}
	p["profile_id"] = id
	p["kind"] = string(kind)
	return s.client.Upsert(ctx, collection, []Point{{ID: PointID(kind, id), Vector: vec, Payload: p}})
}

// CollectionFor maps an embedding kind to its collection.
func CollectionFor(kind domain.EmbeddingKind) (string, error) {
	switch kind {
	case domain.EmbeddingCandidate:
		return CandidateCollection, nil
	case domain.EmbeddingJob:
		return JobCollection, nil
	default:
		return "", fmt.Errorf("op=qdrant.collection: %w: unknown kind %q", domain.ErrInvalidInput, kind)
	}
}

// PointID derives a stable UUID for a profile, since Qdrant only accepts
// unsigned integers or UUIDs as point ids.
func PointID(kind domain.EmbeddingKind, id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(string(kind)+":"+id)).String()
}
