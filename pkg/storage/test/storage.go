// Package test contains the datastore conformance suite. Engine
// packages run it against their own datastore in their _test files.
package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/storage"
)

func RunAllTests(t *testing.T, ds storage.GalleryDatastore) {
	t.Run("TestDatastoreIsReady", func(t *testing.T) {
		status, err := ds.IsReady(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsReady)
	})

	// Items.
	t.Run("TestItemWriteAndRead", func(t *testing.T) { ItemWritingAndReadingTest(t, ds) })
	t.Run("TestItemListing", func(t *testing.T) { ItemListingTest(t, ds) })
	t.Run("TestItemCascadeDelete", func(t *testing.T) { ItemCascadeDeleteTest(t, ds) })
	t.Run("TestFavoriteToggle", func(t *testing.T) { FavoriteToggleTest(t, ds) })
	t.Run("TestRatingUpsert", func(t *testing.T) { RatingUpsertTest(t, ds) })
	t.Run("TestUsageCounter", func(t *testing.T) { UsageCounterTest(t, ds) })

	// Collections.
	t.Run("TestCollectionWriteAndRead", func(t *testing.T) { CollectionWritingAndReadingTest(t, ds) })
	t.Run("TestCollectionMembership", func(t *testing.T) { CollectionMembershipTest(t, ds) })

	// Tournaments.
	t.Run("TestTournamentRegistration", func(t *testing.T) { TournamentRegistrationTest(t, ds) })
	t.Run("TestConcurrentRegistration", func(t *testing.T) { ConcurrentRegistrationTest(t, ds) })
	t.Run("TestParticipationTransitions", func(t *testing.T) { ParticipationTransitionsTest(t, ds) })
}
