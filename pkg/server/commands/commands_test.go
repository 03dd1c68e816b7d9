package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
	"github.com/galleria-app/galleria/pkg/storage/sqlcommon"
	"github.com/galleria-app/galleria/pkg/storage/sqlite"
)

func newTestBackend(t *testing.T) storage.GalleryDatastore {
	t.Helper()

	uri := "file:" + filepath.Join(t.TempDir(), "galleria.db")

	err := sqlite.NewMigrationProvider().RunMigrations(context.Background(), storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 30 * time.Second,
	})
	require.NoError(t, err)

	ds, err := sqlite.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	return ds
}

func requireServerError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var serverErr *serverErrors.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, status, serverErr.HTTPStatus)
	require.Equal(t, code, serverErr.ErrorCode)
}

func seedItem(t *testing.T, ds storage.GalleryDatastore, owner string, visibility storage.Visibility) *storage.ContentItem {
	t.Helper()
	item := &storage.ContentItem{
		OwnerID:    owner,
		Title:      "seeded",
		Body:       "body",
		Visibility: visibility,
	}
	require.NoError(t, ds.CreateItem(context.Background(), item))
	return item
}

func seedTournament(t *testing.T, ds storage.GalleryDatastore, status storage.TournamentStatus, deadline time.Time, maxParticipants int) *storage.Tournament {
	t.Helper()
	now := time.Now().UTC()
	tournament := &storage.Tournament{
		Title:              "seeded",
		Status:             status,
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.Add(48 * time.Hour),
		SubmissionDeadline: deadline,
		MaxParticipants:    maxParticipants,
	}
	require.NoError(t, ds.CreateTournament(context.Background(), tournament))
	return tournament
}

func TestCreateItemValidation(t *testing.T) {
	ds := newTestBackend(t)
	cmd := NewCreateItemCommand(ds, logger.NewNoopLogger())

	_, err := cmd.Execute(context.Background(), &CreateItemRequest{
		Principal: "alice",
		Body:      "body without a title",
	})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)

	_, err = cmd.Execute(context.Background(), &CreateItemRequest{
		Principal: "alice",
		Title:     "   ",
		Body:      "body",
	})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)

	_, err = cmd.Execute(context.Background(), &CreateItemRequest{
		Principal:  "alice",
		Title:      "t",
		Body:       "b",
		Visibility: "friends-only",
	})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)

	item, err := cmd.Execute(context.Background(), &CreateItemRequest{
		Principal: "alice",
		Title:     "valid",
		Body:      "body",
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Equal(t, "alice", item.OwnerID)
	require.Equal(t, "private", item.Visibility, "visibility defaults to private")
}

func TestGetItemHidesPrivateFromNonOwners(t *testing.T) {
	ds := newTestBackend(t)
	private := seedItem(t, ds, "alice", storage.VisibilityPrivate)
	public := seedItem(t, ds, "alice", storage.VisibilityPublic)

	query := NewGetItemQuery(ds, logger.NewNoopLogger())

	got, err := query.Execute(context.Background(), &GetItemRequest{Principal: "alice", ItemID: private.ID})
	require.NoError(t, err)
	require.Equal(t, private.ID, got.ID)

	// Hidden, not forbidden: existence must not leak.
	_, err = query.Execute(context.Background(), &GetItemRequest{Principal: "bob", ItemID: private.ID})
	requireServerError(t, err, 404, serverErrors.CodeNotFound)

	got, err = query.Execute(context.Background(), &GetItemRequest{Principal: "bob", ItemID: public.ID})
	require.NoError(t, err)
	require.Equal(t, public.ID, got.ID)
}

func TestUpdateItemOwnership(t *testing.T) {
	ds := newTestBackend(t)
	item := seedItem(t, ds, "alice", storage.VisibilityPublic)

	cmd := NewUpdateItemCommand(ds, logger.NewNoopLogger())

	// A public item is readable by anyone, so a foreign update is
	// forbidden rather than hidden.
	_, err := cmd.Execute(context.Background(), &UpdateItemRequest{
		Principal:  "bob",
		ItemID:     item.ID,
		Title:      "hijacked",
		Body:       "body",
		Visibility: "public",
	})
	requireServerError(t, err, 403, serverErrors.CodeForbidden)

	updated, err := cmd.Execute(context.Background(), &UpdateItemRequest{
		Principal:  "alice",
		ItemID:     item.ID,
		Title:      "renamed",
		Body:       "new body",
		Visibility: "private",
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Title)
	require.Equal(t, "private", updated.Visibility)

	_, err = cmd.Execute(context.Background(), &UpdateItemRequest{
		Principal:  "alice",
		ItemID:     "missing",
		Title:      "x",
		Body:       "y",
		Visibility: "public",
	})
	requireServerError(t, err, 404, serverErrors.CodeNotFound)
}

func TestDeleteItemOwnership(t *testing.T) {
	ds := newTestBackend(t)
	item := seedItem(t, ds, "alice", storage.VisibilityPublic)

	cmd := NewDeleteItemCommand(ds, logger.NewNoopLogger())

	err := cmd.Execute(context.Background(), &DeleteItemRequest{Principal: "bob", ItemID: item.ID})
	requireServerError(t, err, 403, serverErrors.CodeForbidden)

	require.NoError(t, cmd.Execute(context.Background(), &DeleteItemRequest{Principal: "alice", ItemID: item.ID}))

	err = cmd.Execute(context.Background(), &DeleteItemRequest{Principal: "alice", ItemID: item.ID})
	requireServerError(t, err, 404, serverErrors.CodeNotFound)
}

func TestToggleFavoriteFlipsState(t *testing.T) {
	ds := newTestBackend(t)
	item := seedItem(t, ds, "alice", storage.VisibilityPublic)

	cmd := NewToggleFavoriteCommand(ds, logger.NewNoopLogger())

	resp, err := cmd.Execute(context.Background(), &ToggleFavoriteRequest{Principal: "bob", ItemID: item.ID})
	require.NoError(t, err)
	require.True(t, resp.Favorite)

	resp, err = cmd.Execute(context.Background(), &ToggleFavoriteRequest{Principal: "bob", ItemID: item.ID})
	require.NoError(t, err)
	require.False(t, resp.Favorite)
}

func TestRateItemValidation(t *testing.T) {
	ds := newTestBackend(t)
	item := seedItem(t, ds, "alice", storage.VisibilityPublic)

	cmd := NewRateItemCommand(ds, logger.NewNoopLogger())

	for _, rating := range []int{0, -1, 6} {
		_, err := cmd.Execute(context.Background(), &RateItemRequest{Principal: "bob", ItemID: item.ID, Rating: rating})
		requireServerError(t, err, 400, serverErrors.CodeValidationError)
	}

	resp, err := cmd.Execute(context.Background(), &RateItemRequest{Principal: "bob", ItemID: item.ID, Rating: 5})
	require.NoError(t, err)
	require.InDelta(t, 5.0, resp.Rating, 0.001)

	// Overwrite, not average.
	resp, err = cmd.Execute(context.Background(), &RateItemRequest{Principal: "bob", ItemID: item.ID, Rating: 1})
	require.NoError(t, err)
	require.InDelta(t, 1.0, resp.Rating, 0.001)
}

func TestListItemsRejectsBadParams(t *testing.T) {
	ds := newTestBackend(t)
	query := NewListItemsQuery(ds, logger.NewNoopLogger())

	_, err := query.Execute(context.Background(), &ListItemsRequest{
		Principal: "alice",
		Params:    map[string]string{"sort": "sneaky_column"},
	})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)
}

func TestRegisterParticipantConflicts(t *testing.T) {
	ds := newTestBackend(t)
	ctx := context.Background()
	deadline := time.Now().UTC().Add(24 * time.Hour)

	cmd := NewRegisterParticipantCommand(ds, logger.NewNoopLogger())

	t.Run("window_closed_when_not_active", func(t *testing.T) {
		tournament := seedTournament(t, ds, storage.TournamentUpcoming, deadline, 10)
		_, err := cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
		requireServerError(t, err, 409, serverErrors.CodeWindowClosed)
	})

	t.Run("window_closed_past_deadline", func(t *testing.T) {
		tournament := seedTournament(t, ds, storage.TournamentActive, time.Now().UTC().Add(-time.Hour), 10)
		_, err := cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
		requireServerError(t, err, 409, serverErrors.CodeWindowClosed)
	})

	t.Run("duplicate_registration", func(t *testing.T) {
		tournament := seedTournament(t, ds, storage.TournamentActive, deadline, 10)

		resp, err := cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
		require.NoError(t, err)
		require.Equal(t, string(storage.ParticipationRegistered), resp.Status)

		_, err = cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
		requireServerError(t, err, 409, serverErrors.CodeDuplicateRegistration)
	})

	t.Run("capacity_exceeded", func(t *testing.T) {
		tournament := seedTournament(t, ds, storage.TournamentActive, deadline, 1)

		_, err := cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
		require.NoError(t, err)

		_, err = cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "bob", TournamentID: tournament.ID})
		requireServerError(t, err, 409, serverErrors.CodeCapacityExceeded)
	})

	t.Run("unknown_tournament", func(t *testing.T) {
		_, err := cmd.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: "missing"})
		requireServerError(t, err, 404, serverErrors.CodeNotFound)
	})
}

func TestGetParticipationNeverErrorsForUnregistered(t *testing.T) {
	ds := newTestBackend(t)
	tournament := seedTournament(t, ds, storage.TournamentActive, time.Now().UTC().Add(24*time.Hour), 10)

	query := NewGetParticipationQuery(ds, logger.NewNoopLogger())

	resp, err := query.Execute(context.Background(), &GetParticipationRequest{Principal: "alice", TournamentID: tournament.ID})
	require.NoError(t, err)
	require.Nil(t, resp.Participation)

	_, err = query.Execute(context.Background(), &GetParticipationRequest{Principal: "alice", TournamentID: "missing"})
	requireServerError(t, err, 404, serverErrors.CodeNotFound)
}

func TestSubmitEntryFlow(t *testing.T) {
	ds := newTestBackend(t)
	ctx := context.Background()
	tournament := seedTournament(t, ds, storage.TournamentActive, time.Now().UTC().Add(24*time.Hour), 10)

	register := NewRegisterParticipantCommand(ds, logger.NewNoopLogger())
	submit := NewSubmitEntryCommand(ds, logger.NewNoopLogger())

	_, err := submit.Execute(ctx, &SubmitEntryRequest{Principal: "alice", TournamentID: tournament.ID, SubmissionURL: "https://example.com/a"})
	requireServerError(t, err, 404, serverErrors.CodeNotFound)

	_, err = register.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
	require.NoError(t, err)

	_, err = submit.Execute(ctx, &SubmitEntryRequest{Principal: "alice", TournamentID: tournament.ID})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)

	resp, err := submit.Execute(ctx, &SubmitEntryRequest{Principal: "alice", TournamentID: tournament.ID, SubmissionURL: "https://example.com/a"})
	require.NoError(t, err)
	require.Equal(t, string(storage.ParticipationSubmitted), resp.Status)
	require.Equal(t, "https://example.com/a", resp.SubmissionURL)

	_, err = submit.Execute(ctx, &SubmitEntryRequest{Principal: "alice", TournamentID: tournament.ID, SubmissionURL: "https://example.com/b"})
	requireServerError(t, err, 409, serverErrors.CodeAlreadyExists)
}

func TestAdvanceParticipation(t *testing.T) {
	ds := newTestBackend(t)
	ctx := context.Background()
	tournament := seedTournament(t, ds, storage.TournamentActive, time.Now().UTC().Add(24*time.Hour), 10)

	register := NewRegisterParticipantCommand(ds, logger.NewNoopLogger())
	advance := NewAdvanceParticipationCommand(ds, logger.NewNoopLogger())

	_, err := register.Execute(ctx, &RegisterParticipantRequest{Principal: "alice", TournamentID: tournament.ID})
	require.NoError(t, err)

	// Cannot jump straight to winner.
	_, err = advance.Execute(ctx, &AdvanceParticipationRequest{UserID: "alice", TournamentID: tournament.ID, Target: storage.ParticipationWinner})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)

	resp, err := advance.Execute(ctx, &AdvanceParticipationRequest{UserID: "alice", TournamentID: tournament.ID, Target: storage.ParticipationSubmitted})
	require.NoError(t, err)
	require.Equal(t, string(storage.ParticipationSubmitted), resp.Status)

	resp, err = advance.Execute(ctx, &AdvanceParticipationRequest{UserID: "alice", TournamentID: tournament.ID, Target: storage.ParticipationFinalist})
	require.NoError(t, err)
	require.Equal(t, string(storage.ParticipationFinalist), resp.Status)

	resp, err = advance.Execute(ctx, &AdvanceParticipationRequest{UserID: "alice", TournamentID: tournament.ID, Target: storage.ParticipationWinner})
	require.NoError(t, err)
	require.Equal(t, string(storage.ParticipationWinner), resp.Status)

	_, err = advance.Execute(ctx, &AdvanceParticipationRequest{UserID: "alice", TournamentID: tournament.ID, Target: storage.ParticipationRegistered})
	requireServerError(t, err, 400, serverErrors.CodeValidationError)
}

func TestCollectionOwnershipChecks(t *testing.T) {
	ds := newTestBackend(t)
	ctx := context.Background()
	noop := logger.NewNoopLogger()

	create := NewCreateCollectionCommand(ds, noop)
	collection, err := create.Execute(ctx, &CreateCollectionRequest{Principal: "alice", Name: "mine", Visibility: "public"})
	require.NoError(t, err)

	item := seedItem(t, ds, "alice", storage.VisibilityPublic)

	add := NewAddCollectionItemCommand(ds, noop)
	err = add.Execute(ctx, &CollectionItemRequest{Principal: "bob", CollectionID: collection.ID, ItemID: item.ID})
	requireServerError(t, err, 403, serverErrors.CodeForbidden)

	require.NoError(t, add.Execute(ctx, &CollectionItemRequest{Principal: "alice", CollectionID: collection.ID, ItemID: item.ID}))

	err = add.Execute(ctx, &CollectionItemRequest{Principal: "alice", CollectionID: collection.ID, ItemID: item.ID})
	requireServerError(t, err, 409, serverErrors.CodeAlreadyExists)

	// A private item of someone else cannot be pulled into a
	// collection: it is invisible to the collection's owner.
	foreign := seedItem(t, ds, "carol", storage.VisibilityPrivate)
	err = add.Execute(ctx, &CollectionItemRequest{Principal: "alice", CollectionID: collection.ID, ItemID: foreign.ID})
	requireServerError(t, err, 404, serverErrors.CodeNotFound)

	remove := NewRemoveCollectionItemCommand(ds, noop)
	err = remove.Execute(ctx, &CollectionItemRequest{Principal: "bob", CollectionID: collection.ID, ItemID: item.ID})
	requireServerError(t, err, 403, serverErrors.CodeForbidden)

	require.NoError(t, remove.Execute(ctx, &CollectionItemRequest{Principal: "alice", CollectionID: collection.ID, ItemID: item.ID}))
}
