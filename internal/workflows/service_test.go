package workflows

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph-go/pkg/database"
	"github.com/flowgraph-go/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(database.Config{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(&Workflow{}))
	return NewService(NewRepository(db), logger.NewNop())
}

const validData = `{"nodes": {"q": {"type": "query"}, "r": {"type": "response"}}, "edges": []}`

func TestServiceCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("NamedWorkflow", func(t *testing.T) {
		wf, err := svc.Create(ctx, "My Flow", validData)
		require.NoError(t, err)
		assert.NotEmpty(t, wf.ID)
		assert.Equal(t, "My Flow", wf.Name)
		assert.Equal(t, validData, wf.Data)
	})

	t.Run("BlankNameGetsUntitledSlot", func(t *testing.T) {
		first, err := svc.Create(ctx, "", validData)
		require.NoError(t, err)
		assert.Equal(t, "Untitled 1", first.Name)

		second, err := svc.Create(ctx, "   ", validData)
		require.NoError(t, err)
		assert.Equal(t, "Untitled 2", second.Name)
	})

	t.Run("RejectsInvalidJSON", func(t *testing.T) {
		_, err := svc.Create(ctx, "Broken", "{not json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "valid JSON")
	})

	t.Run("RejectsEmptyData", func(t *testing.T) {
		_, err := svc.Create(ctx, "Empty", "   ")
		require.Error(t, err)
	})
}

func TestServiceLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Lifecycle", validData)
	require.NoError(t, err)

	t.Run("Get", func(t *testing.T) {
		wf, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lifecycle", wf.Name)
	})

	t.Run("List", func(t *testing.T) {
		items, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("Update", func(t *testing.T) {
		updated, err := svc.Update(ctx, created.ID, "Renamed", "")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, validData, updated.Data, "blank data keeps the stored document")
	})

	t.Run("UpdateRejectsInvalidData", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, "", "{nope")
		require.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, created.ID))

		_, err := svc.Get(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := svc.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)

		err = svc.Delete(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
