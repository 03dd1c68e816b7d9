package commands

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// RegisterParticipantCommand registers the caller for a tournament.
// The window and capacity checks here are advisory fail-fasts; the
// datastore's uniqueness constraint and post-insert re-count are the
// final arbiters under concurrent registration.
type RegisterParticipantCommand struct {
	datastore storage.TournamentStore
	logger    logger.Logger
}

type RegisterParticipantRequest struct {
	Principal    string
	TournamentID string
}

func NewRegisterParticipantCommand(datastore storage.TournamentStore, logger logger.Logger) *RegisterParticipantCommand {
	return &RegisterParticipantCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *RegisterParticipantCommand) Execute(ctx context.Context, req *RegisterParticipantRequest) (*ParticipationResponse, error) {
	tournament, err := c.datastore.GetTournament(ctx, req.TournamentID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "tournament", req.TournamentID)
	}

	if tournament.Status != storage.TournamentActive {
		return nil, serverErrors.NewWindowClosedError(req.TournamentID)
	}
	if time.Now().UTC().After(tournament.SubmissionDeadline) {
		return nil, serverErrors.NewWindowClosedError(req.TournamentID)
	}
	if tournament.Registered {
		return nil, serverErrors.NewDuplicateRegistrationError(req.TournamentID)
	}

	maxParticipants := tournament.MaxParticipants
	if maxParticipants <= 0 {
		maxParticipants = storage.DefaultMaxParticipants
	}
	if tournament.Participants >= int64(maxParticipants) {
		return nil, serverErrors.NewCapacityExceededError(req.TournamentID)
	}

	participation, err := c.datastore.RegisterParticipant(ctx, req.Principal, req.TournamentID, maxParticipants)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCollision):
			return nil, serverErrors.NewDuplicateRegistrationError(req.TournamentID)
		case errors.Is(err, storage.ErrCapacityExceeded):
			return nil, serverErrors.NewCapacityExceededError(req.TournamentID)
		}
		c.logger.ErrorWithContext(ctx, "failed to register participant",
			zap.String("tournament_id", req.TournamentID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	return participationFromStorage(participation), nil
}
