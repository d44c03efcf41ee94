package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docpilot/docpilot/internal/common"
	"github.com/docpilot/docpilot/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestVectorStorage_UpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	storage := NewVectorStorage(db, common.GetLogger())
	ctx := context.Background()

	rec := &models.EmbeddingRecord{
		ID:        "vec1",
		Namespace: "ns1",
		SectionID: "sec1",
		Role:      models.RoleSource,
		Heading:   "Setup",
		Text:      "install the toolchain",
		Vector:    []float32{1, 0, 0},
	}

	require.NoError(t, storage.Upsert(ctx, []*models.EmbeddingRecord{rec}))
	require.NoError(t, storage.Upsert(ctx, []*models.EmbeddingRecord{rec}))

	count, err := storage.Count(ctx, "ns1", models.RoleSource)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestVectorStorage_QueryRoleIsolation(t *testing.T) {
	db := newTestDB(t)
	storage := NewVectorStorage(db, common.GetLogger())
	ctx := context.Background()

	records := []*models.EmbeddingRecord{
		{ID: "v1", Namespace: "ns1", SectionID: "s1", Role: models.RoleSource, Text: "source text", Vector: []float32{1, 0}},
		{ID: "v2", Namespace: "ns1", SectionID: "s1", Role: models.RoleSummary, Text: "summary text", Vector: []float32{1, 0}},
		{ID: "v3", Namespace: "ns2", SectionID: "s2", Role: models.RoleSource, Text: "other page", Vector: []float32{1, 0}},
	}
	require.NoError(t, storage.Upsert(ctx, records))

	hits, err := storage.Query(ctx, "ns1", models.RoleSource, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "source text", hits[0].Text)
}

func TestVectorStorage_QueryOrderingAndThreshold(t *testing.T) {
	db := newTestDB(t)
	storage := NewVectorStorage(db, common.GetLogger())
	ctx := context.Background()

	records := []*models.EmbeddingRecord{
		{ID: "v1", Namespace: "ns1", SectionID: "s1", Role: models.RoleSource, Text: "close", Vector: []float32{1, 0.1}},
		{ID: "v2", Namespace: "ns1", SectionID: "s2", Role: models.RoleSource, Text: "exact", Vector: []float32{1, 0}},
		{ID: "v3", Namespace: "ns1", SectionID: "s3", Role: models.RoleSource, Text: "orthogonal", Vector: []float32{0, 1}},
	}
	require.NoError(t, storage.Upsert(ctx, records))

	hits, err := storage.Query(ctx, "ns1", models.RoleSource, []float32{1, 0}, 10, 0.35)
	require.NoError(t, err)
	require.Len(t, hits, 2) // orthogonal vector scores 0, below threshold
	require.Equal(t, "exact", hits[0].Text)
	require.Equal(t, "close", hits[1].Text)
	require.True(t, hits[0].Score >= hits[1].Score)
}

func TestVectorStorage_DeleteNamespace(t *testing.T) {
	db := newTestDB(t)
	storage := NewVectorStorage(db, common.GetLogger())
	ctx := context.Background()

	records := []*models.EmbeddingRecord{
		{ID: "v1", Namespace: "ns1", SectionID: "s1", Role: models.RoleSource, Vector: []float32{1}},
		{ID: "v2", Namespace: "ns1", SectionID: "s1", Role: models.RoleSummary, Vector: []float32{1}},
		{ID: "v3", Namespace: "ns2", SectionID: "s2", Role: models.RoleSource, Vector: []float32{1}},
	}
	require.NoError(t, storage.Upsert(ctx, records))

	require.NoError(t, storage.DeleteNamespace(ctx, "ns1"))

	for _, role := range []models.EmbeddingRole{models.RoleSource, models.RoleSummary} {
		count, err := storage.Count(ctx, "ns1", role)
		require.NoError(t, err)
		require.Equal(t, 0, count)
	}

	count, err := storage.Count(ctx, "ns2", models.RoleSource)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"dimension mismatch", []float32{1, 0}, []float32{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
