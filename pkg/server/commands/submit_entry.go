package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// SubmitEntryCommand moves the caller's participation from registered
// to submitted, recording the submission URL. Submissions close at
// the tournament's deadline.
type SubmitEntryCommand struct {
	datastore storage.TournamentStore
	logger    logger.Logger
}

type SubmitEntryRequest struct {
	Principal     string
	TournamentID  string
	SubmissionURL string `json:"submission_url"`
}

func NewSubmitEntryCommand(datastore storage.TournamentStore, logger logger.Logger) *SubmitEntryCommand {
	return &SubmitEntryCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *SubmitEntryCommand) Execute(ctx context.Context, req *SubmitEntryRequest) (*ParticipationResponse, error) {
	if strings.TrimSpace(req.SubmissionURL) == "" {
		return nil, serverErrors.NewValidationError("submission_url", "must not be empty")
	}

	tournament, err := c.datastore.GetTournament(ctx, req.TournamentID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "tournament", req.TournamentID)
	}
	if time.Now().UTC().After(tournament.SubmissionDeadline) {
		return nil, serverErrors.NewWindowClosedError(req.TournamentID)
	}

	err = c.datastore.UpdateParticipationStatus(ctx,
		req.Principal, req.TournamentID,
		storage.ParticipationRegistered, storage.ParticipationSubmitted,
		req.SubmissionURL,
	)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, serverErrors.NewNotFoundError("participation", req.TournamentID)
		case errors.Is(err, storage.ErrInvalidTransition):
			return nil, serverErrors.NewAlreadyExistsError("submission")
		}
		c.logger.ErrorWithContext(ctx, "failed to submit entry",
			zap.String("tournament_id", req.TournamentID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	participation, err := c.datastore.GetParticipation(ctx, req.Principal, req.TournamentID)
	if err != nil {
		return nil, serverErrors.NewInternalError("", err)
	}

	return participationFromStorage(participation), nil
}
