package commands

import (
	"context"
	"errors"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// GetParticipationQuery reports the caller's participation in a
// tournament. A caller who never registered gets a nil participation,
// not an error; only an unknown tournament is a not-found.
type GetParticipationQuery struct {
	datastore storage.TournamentStore
	logger    logger.Logger
}

type GetParticipationRequest struct {
	Principal    string
	TournamentID string
}

type GetParticipationResponse struct {
	Participation *ParticipationResponse `json:"participation"`
}

func NewGetParticipationQuery(datastore storage.TournamentStore, logger logger.Logger) *GetParticipationQuery {
	return &GetParticipationQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *GetParticipationQuery) Execute(ctx context.Context, req *GetParticipationRequest) (*GetParticipationResponse, error) {
	if _, err := q.datastore.GetTournament(ctx, req.TournamentID, req.Principal); err != nil {
		return nil, notFoundOrInternal(err, "tournament", req.TournamentID)
	}

	participation, err := q.datastore.GetParticipation(ctx, req.Principal, req.TournamentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &GetParticipationResponse{}, nil
		}
		return nil, serverErrors.NewInternalError("", err)
	}

	return &GetParticipationResponse{
		Participation: participationFromStorage(participation),
	}, nil
}
