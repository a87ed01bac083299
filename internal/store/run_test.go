package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ibis/internal/recipe"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestRun("run-1")

	seq, err := s.WriteRun(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)

	want.Seq = 1
	assert.Equal(t, want, got)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.WriteRun(ctx, createTestRun("run-1"))
	require.NoError(t, err)
	again, err := s.WriteRun(ctx, createTestRun("run-1"))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteRun_DuplicateSolutionStoredOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	run.Solutions = append(run.Solutions, run.Solutions[0])
	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got.Solutions, 2)
	assert.Equal(t, []recipe.Pair{{A: "a", B: "b"}}, got.Solutions[0].Edges)
}

func TestWriteRun_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, RunRecord{})
	assert.Error(t, err)

	run := createTestRun("run-1")
	run.Solutions[1].Digest = ""
	_, err = s.WriteRun(ctx, run)
	require.Error(t, err)

	// The failed write left nothing behind.
	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestWriteRun_NilLossAndEmptyWarnings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1")
	run.Loss = nil
	run.Warnings = nil
	run.Solutions = nil
	_, err := s.WriteRun(ctx, run)
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, got.Loss)
	assert.Nil(t, got.Warnings)
	assert.Empty(t, got.Solutions)
}

func TestListRuns_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		_, err := s.WriteRun(ctx, createTestRun(id))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	var ids []string
	for i, r := range runs {
		ids = append(ids, r.ID)
		assert.Equal(t, int64(i+1), r.Seq)
		assert.Nil(t, r.Solutions)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

// =============================================================================
// Records from documents
// =============================================================================

func TestNewRunRecord(t *testing.T) {
	in, err := recipe.Decode([]byte(`{
  "capabilities": [["any", "any"]],
  "flags": {"planning": true, "extra": 1},
  "recipes": [{"nodes": [["p_a", "a", "Char"], ["p_b", "b", "Char"]]}]
}`), recipe.FormatJSON)
	require.NoError(t, err)

	zero := 0
	out, err := recipe.Solve(context.Background(), in, recipe.Options{Loss: &zero})
	require.NoError(t, err)

	run, err := NewRunRecord("run-1", in, out, true, &zero)
	require.NoError(t, err)

	digest, err := in.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest, run.InputDigest)
	assert.Equal(t, 4, run.NumUnchecked)
	assert.Equal(t, 1, run.NumSelected)
	assert.Len(t, run.Warnings, 1)
	require.Len(t, run.Solutions, 1)

	s := createTestStore(t)
	_, err = s.WriteRun(context.Background(), run)
	require.NoError(t, err)

	got, err := s.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, recipe.EdgeStrings(run.Solutions[0]), recipe.EdgeStrings(got.Solutions[0]))
	assert.Equal(t, run.Solutions[0].Digest, got.Solutions[0].Digest)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
