package test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/storage"
)

func createTournament(t *testing.T, ds storage.GalleryDatastore, maxParticipants int) *storage.Tournament {
	t.Helper()
	now := time.Now().UTC()
	tournament := &storage.Tournament{
		Title:              "weekly showcase",
		Description:        "best piece wins",
		Status:             storage.TournamentActive,
		StartDate:          now.Add(-24 * time.Hour),
		EndDate:            now.Add(7 * 24 * time.Hour),
		SubmissionDeadline: now.Add(3 * 24 * time.Hour),
		MaxParticipants:    maxParticipants,
	}
	require.NoError(t, ds.CreateTournament(context.Background(), tournament))
	require.NotEmpty(t, tournament.ID)
	return tournament
}

func TournamentRegistrationTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	tournament := createTournament(t, ds, 2)
	user := newUserID()

	participation, err := ds.RegisterParticipant(ctx, user, tournament.ID, tournament.MaxParticipants)
	require.NoError(t, err)
	require.Equal(t, storage.ParticipationRegistered, participation.Status)
	require.False(t, participation.RegisteredAt.IsZero())

	// Registering twice must fail on the edge's uniqueness, not
	// produce a second edge.
	_, err = ds.RegisterParticipant(ctx, user, tournament.ID, tournament.MaxParticipants)
	require.ErrorIs(t, err, storage.ErrCollision)

	got, err := ds.GetTournament(ctx, tournament.ID, user)
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Participants)
	require.True(t, got.Registered)

	second := newUserID()
	_, err = ds.RegisterParticipant(ctx, second, tournament.ID, tournament.MaxParticipants)
	require.NoError(t, err)

	third := newUserID()
	_, err = ds.RegisterParticipant(ctx, third, tournament.ID, tournament.MaxParticipants)
	require.ErrorIs(t, err, storage.ErrCapacityExceeded)

	got, err = ds.GetTournament(ctx, tournament.ID, third)
	require.NoError(t, err)
	require.EqualValues(t, 2, got.Participants, "a rejected registration must leave no edge behind")
	require.False(t, got.Registered)
}

func ConcurrentRegistrationTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	const capacity = 5
	tournament := createTournament(t, ds, capacity)

	var admitted atomic.Int64
	p := pool.New().WithErrors()
	for i := 0; i < capacity*3; i++ {
		user := fmt.Sprintf("racer-%d-%s", i, newUserID())
		p.Go(func() error {
			_, err := ds.RegisterParticipant(ctx, user, tournament.ID, capacity)
			switch {
			case err == nil:
				admitted.Add(1)
				return nil
			case errors.Is(err, storage.ErrCapacityExceeded):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, p.Wait())
	require.EqualValues(t, capacity, admitted.Load())

	got, err := ds.GetTournament(ctx, tournament.ID, "nobody")
	require.NoError(t, err)
	require.EqualValues(t, capacity, got.Participants)
}

func ParticipationTransitionsTest(t *testing.T, ds storage.GalleryDatastore) {
	ctx := context.Background()
	tournament := createTournament(t, ds, 10)
	user := newUserID()

	_, err := ds.GetParticipation(ctx, user, tournament.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = ds.RegisterParticipant(ctx, user, tournament.ID, tournament.MaxParticipants)
	require.NoError(t, err)

	// Skipping a step is rejected.
	err = ds.UpdateParticipationStatus(ctx, user, tournament.ID,
		storage.ParticipationSubmitted, storage.ParticipationFinalist, "")
	require.ErrorIs(t, err, storage.ErrInvalidTransition)

	require.NoError(t, ds.UpdateParticipationStatus(ctx, user, tournament.ID,
		storage.ParticipationRegistered, storage.ParticipationSubmitted, "https://example.com/entry"))

	participation, err := ds.GetParticipation(ctx, user, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, storage.ParticipationSubmitted, participation.Status)
	require.Equal(t, "https://example.com/entry", participation.SubmissionURL)

	// Re-submitting from a non-registered state is rejected.
	err = ds.UpdateParticipationStatus(ctx, user, tournament.ID,
		storage.ParticipationRegistered, storage.ParticipationSubmitted, "https://example.com/other")
	require.ErrorIs(t, err, storage.ErrInvalidTransition)

	require.NoError(t, ds.UpdateParticipationStatus(ctx, user, tournament.ID,
		storage.ParticipationSubmitted, storage.ParticipationFinalist, ""))
	require.NoError(t, ds.UpdateParticipationStatus(ctx, user, tournament.ID,
		storage.ParticipationFinalist, storage.ParticipationWinner, ""))

	participation, err = ds.GetParticipation(ctx, user, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, storage.ParticipationWinner, participation.Status)
	require.Equal(t, "https://example.com/entry", participation.SubmissionURL,
		"a status change without a new submission must keep the old URL")

	err = ds.UpdateParticipationStatus(ctx, "ghost", tournament.ID,
		storage.ParticipationRegistered, storage.ParticipationSubmitted, "")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
