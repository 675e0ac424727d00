//go:build integration

// Package integration runs the storage adapters against real containers.
// Run with: go test -tags integration ./internal/integration/...
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/ai/embed"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/usecase"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return host + ":" + p.Port()
}

func Test_ProfilesRefreshAndMatch(t *testing.T) {
	ctx := context.Background()

	pgAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}, "5432")
	qdrAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:v1.9.0",
		ExposedPorts: []string{"6333/tcp"},
		WaitingFor:   wait.ForHTTP("/collections").WithPort("6333/tcp").WithStartupTimeout(90 * time.Second),
	}, "6333")

	pool, err := postgres.NewPool(ctx, "postgres://postgres:postgres@"+pgAddr+"/app?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.Eventually(t, func() bool { return pool.Ping(ctx) == nil }, 30*time.Second, time.Second)
	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "migrations are idempotent")

	repo := postgres.NewProfileRepo(pool)
	builder := usecase.NewProfileBuilder([]string{"go", "postgresql", "kubernetes"})
	profiles := usecase.NewProfileService(builder, repo, repo, nil)
	_, err = profiles.SaveJob(ctx, usecase.JobInput{ID: "j1", Title: "Backend Engineer", Description: "Go and PostgreSQL services on Kubernetes. 3-5 years of experience."})
	require.NoError(t, err)
	_, err = profiles.SaveCandidate(ctx, usecase.CandidateInput{ID: "r1", Name: "Ann", Text: "Go developer, 4 years of experience with PostgreSQL."})
	require.NoError(t, err)

	enc := embed.NewHashing(64)
	store := qdrant.NewEmbeddingStore(qdrant.New("http://"+qdrAddr, ""), enc.Dimension())
	require.NoError(t, store.EnsureCollections(ctx))
	stats, err := usecase.NewEmbeddingRefresher(enc, repo, repo, store, 2).RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.JobsUpdated)
	assert.Equal(t, 1, stats.CandidatesUpdated)
	assert.Empty(t, stats.Errors)

	matches := usecase.NewMatchService(enc, repo, repo, postgres.NewMatchResultRepo(pool))
	res, err := matches.MatchStored(ctx, "r1", "j1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.ExperienceScore)
	_, err = matches.MatchStored(ctx, "r1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
