package test

import (
	"context"
	"fmt"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/query"
	"github.com/galleria-app/galleria/pkg/storage"
)

func newUserID() string {
	return "user-" + ulid.Make().String()
}

func createItem(t *testing.T, ds storage.GalleryDatastore, item *storage.ContentItem) *storage.ContentItem {
	t.Helper()
	require.NoError(t, ds.CreateItem(context.Background(), item))
	require.NotEmpty(t, item.ID)
	return item
}

func buildSpec(t *testing.T, principal string, params map[string]string) *query.Spec {
	t.Helper()
	spec, err := query.Build(query.Items, principal, params)
	require.NoError(t, err)
	return spec
}

func ItemWritingAndReadingTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()

	item := createItem(t, ds, &storage.ContentItem{
		OwnerID:    owner,
		Title:      "sunset study",
		Body:       "a prompt about painterly sunsets",
		Tags:       []string{"landscape", "warm"},
		Category:   "art",
		Visibility: storage.VisibilityPrivate,
	})
	require.False(t, item.CreatedAt.IsZero())

	got, err := ds.GetItem(ctx, item.ID, owner)
	require.NoError(t, err)
	require.Equal(t, item.ID, got.ID)
	require.Equal(t, owner, got.OwnerID)
	require.Equal(t, "sunset study", got.Title)
	require.Equal(t, []string{"landscape", "warm"}, got.Tags)
	require.Equal(t, storage.VisibilityPrivate, got.Visibility)
	require.False(t, got.Favorite)
	require.Zero(t, got.Rating)
	require.Zero(t, got.FavoriteCount)

	_, err = ds.GetItem(ctx, "item-does-not-exist", owner)
	require.ErrorIs(t, err, storage.ErrNotFound)

	item.Title = "sunset study II"
	item.Visibility = storage.VisibilityPublic
	require.NoError(t, ds.UpdateItem(ctx, item))

	got, err = ds.GetItem(ctx, item.ID, owner)
	require.NoError(t, err)
	require.Equal(t, "sunset study II", got.Title)
	require.Equal(t, storage.VisibilityPublic, got.Visibility)
	require.False(t, got.UpdatedAt.Before(got.CreatedAt))

	err = ds.UpdateItem(ctx, &storage.ContentItem{
		ID:         "item-does-not-exist",
		OwnerID:    owner,
		Title:      "x",
		Body:       "x",
		Visibility: storage.VisibilityPrivate,
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func ItemListingTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	alice := newUserID()
	bob := newUserID()

	// Tie every fixture to this test run so listings from other suite
	// runs cannot interfere.
	marker := ulid.Make().String()

	mine := make([]*storage.ContentItem, 0, 5)
	for i := 0; i < 5; i++ {
		visibility := storage.VisibilityPublic
		if i%2 == 1 {
			visibility = storage.VisibilityPrivate
		}
		mine = append(mine, createItem(t, ds, &storage.ContentItem{
			OwnerID:    alice,
			Title:      fmt.Sprintf("alice piece %d %s", i, marker),
			Body:       "body",
			Category:   "art",
			Visibility: visibility,
		}))
	}

	bobPublic := createItem(t, ds, &storage.ContentItem{
		OwnerID:    bob,
		Title:      "bob public " + marker,
		Body:       "body",
		Category:   "prompt",
		Visibility: storage.VisibilityPublic,
	})
	bobPrivate := createItem(t, ds, &storage.ContentItem{
		OwnerID:    bob,
		Title:      "bob private " + marker,
		Body:       "body",
		Category:   "prompt",
		Visibility: storage.VisibilityPrivate,
	})

	t.Run("community_scope_hides_foreign_private", func(t *testing.T) {
		spec := buildSpec(t, alice, map[string]string{"search": marker})
		items, total, err := ds.ListItems(ctx, spec)
		require.NoError(t, err)
		require.EqualValues(t, 6, total)

		ids := make(map[string]bool, len(items))
		for _, it := range items {
			ids[it.ID] = true
		}
		require.True(t, ids[bobPublic.ID])
		require.False(t, ids[bobPrivate.ID])
		for _, it := range mine {
			require.True(t, ids[it.ID], "caller must see their own items regardless of visibility")
		}
	})

	t.Run("mine_scope_returns_only_owned", func(t *testing.T) {
		spec := buildSpec(t, alice, map[string]string{"tab": "mine", "search": marker})
		items, total, err := ds.ListItems(ctx, spec)
		require.NoError(t, err)
		require.EqualValues(t, 5, total)
		for _, it := range items {
			require.Equal(t, alice, it.OwnerID)
		}
	})

	t.Run("category_filter", func(t *testing.T) {
		spec := buildSpec(t, alice, map[string]string{"category": "prompt", "search": marker})
		items, total, err := ds.ListItems(ctx, spec)
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Equal(t, bobPublic.ID, items[0].ID)
	})

	t.Run("pagination_is_consistent_with_total", func(t *testing.T) {
		seen := make(map[string]bool)
		offset := 0
		for {
			spec := buildSpec(t, alice, map[string]string{
				"search": marker,
				"limit":  "2",
				"offset": fmt.Sprintf("%d", offset),
				"sort":   "title",
				"order":  "asc",
			})
			items, total, err := ds.ListItems(ctx, spec)
			require.NoError(t, err)
			require.EqualValues(t, 6, total)
			for _, it := range items {
				require.False(t, seen[it.ID], "no item may appear on two pages")
				seen[it.ID] = true
			}
			offset += 2
			if int64(offset) >= total {
				break
			}
		}
		require.Len(t, seen, 6)
	})

	t.Run("sort_by_title_ascending", func(t *testing.T) {
		spec := buildSpec(t, alice, map[string]string{"search": marker, "sort": "title", "order": "asc"})
		items, _, err := ds.ListItems(ctx, spec)
		require.NoError(t, err)
		for i := 1; i < len(items); i++ {
			require.LessOrEqual(t, items[i-1].Title, items[i].Title)
		}
	})

	t.Run("favorites_only", func(t *testing.T) {
		favorite, err := ds.ToggleFavorite(ctx, alice, bobPublic.ID)
		require.NoError(t, err)
		require.True(t, favorite)

		spec := buildSpec(t, alice, map[string]string{"search": marker, "favorites": "true"})
		items, total, err := ds.ListItems(ctx, spec)
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Equal(t, bobPublic.ID, items[0].ID)
		require.True(t, items[0].Favorite)
	})
}

func ItemCascadeDeleteTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()
	fan := newUserID()

	item := createItem(t, ds, &storage.ContentItem{
		OwnerID:    owner,
		Title:      "to be deleted",
		Body:       "body",
		Visibility: storage.VisibilityPublic,
	})
	survivor := createItem(t, ds, &storage.ContentItem{
		OwnerID:    owner,
		Title:      "survivor",
		Body:       "body",
		Visibility: storage.VisibilityPublic,
	})

	_, err := ds.ToggleFavorite(ctx, fan, item.ID)
	require.NoError(t, err)
	_, err = ds.ToggleFavorite(ctx, fan, survivor.ID)
	require.NoError(t, err)
	require.NoError(t, ds.RateItem(ctx, fan, item.ID, 5))

	collection := &storage.Collection{
		OwnerID:    owner,
		Name:       "cascade check",
		Visibility: storage.VisibilityPrivate,
	}
	require.NoError(t, ds.CreateCollection(ctx, collection))
	require.NoError(t, ds.AddCollectionItem(ctx, collection.ID, item.ID))

	require.NoError(t, ds.DeleteItem(ctx, item.ID))

	_, err = ds.GetItem(ctx, item.ID, owner)
	require.ErrorIs(t, err, storage.ErrNotFound)

	spec := buildSpec(t, owner, nil)
	_, total, err := ds.ListCollectionItems(ctx, collection.ID, spec)
	require.NoError(t, err)
	require.Zero(t, total, "membership edge must not survive the item")

	got, err := ds.GetItem(ctx, survivor.ID, fan)
	require.NoError(t, err)
	require.True(t, got.Favorite, "edges of other items must be untouched")

	require.ErrorIs(t, ds.DeleteItem(ctx, item.ID), storage.ErrNotFound)
}

func FavoriteToggleTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()
	fan := newUserID()

	item := createItem(t, ds, &storage.ContentItem{
		OwnerID:    owner,
		Title:      "toggled",
		Body:       "body",
		Visibility: storage.VisibilityPublic,
	})

	favorite, err := ds.ToggleFavorite(ctx, fan, item.ID)
	require.NoError(t, err)
	require.True(t, favorite)

	got, err := ds.GetItem(ctx, item.ID, fan)
	require.NoError(t, err)
	require.True(t, got.Favorite)
	require.EqualValues(t, 1, got.FavoriteCount)

	// The owner's view carries the count but not the fan's edge.
	got, err = ds.GetItem(ctx, item.ID, owner)
	require.NoError(t, err)
	require.False(t, got.Favorite)
	require.EqualValues(t, 1, got.FavoriteCount)

	favorite, err = ds.ToggleFavorite(ctx, fan, item.ID)
	require.NoError(t, err)
	require.False(t, favorite)

	got, err = ds.GetItem(ctx, item.ID, fan)
	require.NoError(t, err)
	require.False(t, got.Favorite)
	require.Zero(t, got.FavoriteCount)

	t.Run("concurrent_toggles_never_duplicate_the_edge", func(t *testing.T) {
		p := pool.New().WithErrors()
		for i := 0; i < 10; i++ {
			p.Go(func() error {
				_, err := ds.ToggleFavorite(ctx, fan, item.ID)
				return err
			})
		}
		require.NoError(t, p.Wait())

		got, err := ds.GetItem(ctx, item.ID, fan)
		require.NoError(t, err)
		require.Contains(t, []int64{0, 1}, got.FavoriteCount)
		require.Equal(t, got.FavoriteCount == 1, got.Favorite)
	})
}

func RatingUpsertTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()
	first := newUserID()
	second := newUserID()

	item := createItem(t, ds, &storage.ContentItem{
		OwnerID:    owner,
		Title:      "rated",
		Body:       "body",
		Visibility: storage.VisibilityPublic,
	})

	require.NoError(t, ds.RateItem(ctx, first, item.ID, 4))

	got, err := ds.GetItem(ctx, item.ID, first)
	require.NoError(t, err)
	require.InDelta(t, 4.0, got.Rating, 0.001)

	// A repeat rating overwrites, it does not accumulate.
	require.NoError(t, ds.RateItem(ctx, first, item.ID, 2))

	got, err = ds.GetItem(ctx, item.ID, first)
	require.NoError(t, err)
	require.InDelta(t, 2.0, got.Rating, 0.001)

	require.NoError(t, ds.RateItem(ctx, second, item.ID, 4))

	got, err = ds.GetItem(ctx, item.ID, first)
	require.NoError(t, err)
	require.InDelta(t, 3.0, got.Rating, 0.001)
}

func UsageCounterTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()

	item := createItem(t, ds, &storage.ContentItem{
		OwnerID:    owner,
		Title:      "used",
		Body:       "body",
		Visibility: storage.VisibilityPublic,
	})

	require.NoError(t, ds.IncrementItemUsage(ctx, item.ID))
	require.NoError(t, ds.IncrementItemUsage(ctx, item.ID))

	got, err := ds.GetItem(ctx, item.ID, owner)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.UsageCount)
}
