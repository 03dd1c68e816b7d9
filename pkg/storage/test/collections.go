package test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/query"
	"github.com/galleria-app/galleria/pkg/storage"
)

func CollectionWritingAndReadingTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()
	stranger := newUserID()
	marker := ulid.Make().String()

	collection := &storage.Collection{
		OwnerID:     owner,
		Name:        "inspiration " + marker,
		Description: "things worth keeping",
		Visibility:  storage.VisibilityPrivate,
	}
	require.NoError(t, ds.CreateCollection(ctx, collection))
	require.NotEmpty(t, collection.ID)

	got, err := ds.GetCollection(ctx, collection.ID)
	require.NoError(t, err)
	require.Equal(t, "inspiration "+marker, got.Name)
	require.Equal(t, storage.VisibilityPrivate, got.Visibility)

	collection.Name = "renamed " + marker
	collection.Visibility = storage.VisibilityPublic
	require.NoError(t, ds.UpdateCollection(ctx, collection))

	got, err = ds.GetCollection(ctx, collection.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed "+marker, got.Name)

	t.Run("listing_scopes_by_owner_and_visibility", func(t *testing.T) {
		private := &storage.Collection{
			OwnerID:    owner,
			Name:       "hidden " + marker,
			Visibility: storage.VisibilityPrivate,
		}
		require.NoError(t, ds.CreateCollection(ctx, private))

		spec, err := query.Build(query.Collections, stranger, map[string]string{"search": marker})
		require.NoError(t, err)
		recs, total, err := ds.ListCollections(ctx, spec)
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Equal(t, collection.ID, recs[0].ID)

		spec, err = query.Build(query.Collections, owner, map[string]string{"tab": "mine", "search": marker})
		require.NoError(t, err)
		_, total, err = ds.ListCollections(ctx, spec)
		require.NoError(t, err)
		require.EqualValues(t, 2, total)
	})

	t.Run("delete_removes_collection_and_edges", func(t *testing.T) {
		item := createItem(t, ds, &storage.ContentItem{
			OwnerID:    owner,
			Title:      "kept item",
			Body:       "body",
			Visibility: storage.VisibilityPublic,
		})
		require.NoError(t, ds.AddCollectionItem(ctx, collection.ID, item.ID))

		require.NoError(t, ds.DeleteCollection(ctx, collection.ID))

		_, err := ds.GetCollection(ctx, collection.ID)
		require.ErrorIs(t, err, storage.ErrNotFound)

		// The item itself survives its collection.
		_, err = ds.GetItem(ctx, item.ID, owner)
		require.NoError(t, err)
	})
}

func CollectionMembershipTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	owner := newUserID()

	collection := &storage.Collection{
		OwnerID:    owner,
		Name:       "membership",
		Visibility: storage.VisibilityPrivate,
	}
	require.NoError(t, ds.CreateCollection(ctx, collection))

	items := make([]*storage.ContentItem, 0, 3)
	for i := 0; i < 3; i++ {
		items = append(items, createItem(t, ds, &storage.ContentItem{
			OwnerID:    owner,
			Title:      "member",
			Body:       "body",
			Visibility: storage.VisibilityPrivate,
		}))
	}

	for _, item := range items {
		require.NoError(t, ds.AddCollectionItem(ctx, collection.ID, item.ID))
	}

	require.ErrorIs(t, ds.AddCollectionItem(ctx, collection.ID, items[0].ID), storage.ErrCollision)

	spec := buildSpec(t, owner, nil)
	recs, total, err := ds.ListCollectionItems(ctx, collection.ID, spec)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, recs, 3)

	require.NoError(t, ds.RemoveCollectionItem(ctx, collection.ID, items[0].ID))
	require.ErrorIs(t, ds.RemoveCollectionItem(ctx, collection.ID, items[0].ID), storage.ErrNotFound)

	_, total, err = ds.ListCollectionItems(ctx, collection.ID, spec)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}
