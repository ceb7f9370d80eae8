package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/models"
)

func sampleView(name string) *models.View {
	return &models.View{
		Name:        name,
		Description: "chat messages about printing",
		Query: models.ViewQuery{
			Kind: models.ViewQueryKindEvents,
			Filters: models.ViewFilters{
				Type: models.StringOrList{"chat.message"},
				Tag:  models.StringOrList{"打印"},
			},
			Order: models.OrderAsc,
		},
		CreatedAt: "2026-01-02T10:00:00+09:00",
	}
}

func TestViewStorage_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewViewStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.CreateView(ctx, sampleView("printing")))

	got, err := storage.GetView(ctx, "printing")
	require.NoError(t, err)
	assert.Equal(t, models.ViewQueryKindEvents, got.Query.Kind)
	assert.Equal(t, models.StringOrList{"chat.message"}, got.Query.Filters.Type)
	assert.Equal(t, models.StringOrList{"打印"}, got.Query.Filters.Tag)
	assert.Equal(t, models.OrderAsc, got.Query.Order)
}

func TestViewStorage_CreateReplacesQuery(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewViewStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.CreateView(ctx, sampleView("mine")))

	updated := sampleView("mine")
	updated.Query.Order = models.OrderDesc
	updated.CreatedAt = "2026-02-01T00:00:00+09:00"
	require.NoError(t, storage.CreateView(ctx, updated))

	got, err := storage.GetView(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, models.OrderDesc, got.Query.Order)
	// created_at records first creation and survives updates.
	assert.Equal(t, "2026-01-02T10:00:00+09:00", got.CreatedAt)
}

func TestViewStorage_EnsureViewKeepsExisting(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewViewStorage(db, arbor.NewLogger())
	ctx := context.Background()

	custom := sampleView("timeline")
	custom.Description = "user-edited"
	require.NoError(t, storage.CreateView(ctx, custom))

	builtin := sampleView("timeline")
	builtin.Description = "builtin"
	require.NoError(t, storage.EnsureView(ctx, builtin))

	got, err := storage.GetView(ctx, "timeline")
	require.NoError(t, err)
	assert.Equal(t, "user-edited", got.Description)
}

func TestViewStorage_ListAndDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewViewStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.CreateView(ctx, sampleView("b-view")))
	require.NoError(t, storage.CreateView(ctx, sampleView("a-view")))

	views, err := storage.ListViews(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "a-view", views[0].Name)

	require.NoError(t, storage.DeleteView(ctx, "a-view"))

	_, err = storage.GetView(ctx, "a-view")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = storage.DeleteView(ctx, "a-view")
	require.Error(t, err)
}
