package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// participationTransitions is the allowed forward path of a
// tournament entry. Each status has exactly one predecessor, so an
// advance is expressed as a compare-and-swap against it.
var participationTransitions = map[storage.ParticipationStatus]storage.ParticipationStatus{
	storage.ParticipationSubmitted: storage.ParticipationRegistered,
	storage.ParticipationFinalist:  storage.ParticipationSubmitted,
	storage.ParticipationWinner:    storage.ParticipationFinalist,
}

// AdvanceParticipationCommand promotes a participant to the next
// status (submitted, finalist, winner). Used by tournament
// adjudication, not by participants themselves.
type AdvanceParticipationCommand struct {
	datastore storage.TournamentStore
	logger    logger.Logger
}

type AdvanceParticipationRequest struct {
	UserID       string
	TournamentID string
	Target       storage.ParticipationStatus
}

func NewAdvanceParticipationCommand(datastore storage.TournamentStore, logger logger.Logger) *AdvanceParticipationCommand {
	return &AdvanceParticipationCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *AdvanceParticipationCommand) Execute(ctx context.Context, req *AdvanceParticipationRequest) (*ParticipationResponse, error) {
	from, ok := participationTransitions[req.Target]
	if !ok {
		return nil, serverErrors.NewValidationError("status", fmt.Sprintf("cannot advance to %q", req.Target))
	}

	err := c.datastore.UpdateParticipationStatus(ctx, req.UserID, req.TournamentID, from, req.Target, "")
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, serverErrors.NewNotFoundError("participation", req.TournamentID)
		case errors.Is(err, storage.ErrInvalidTransition):
			return nil, serverErrors.NewValidationError("status", fmt.Sprintf("participant is not %q", from))
		}
		c.logger.ErrorWithContext(ctx, "failed to advance participation",
			zap.String("tournament_id", req.TournamentID),
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	participation, err := c.datastore.GetParticipation(ctx, req.UserID, req.TournamentID)
	if err != nil {
		return nil, serverErrors.NewInternalError("", err)
	}

	return participationFromStorage(participation), nil
}
