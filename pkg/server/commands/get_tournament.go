package commands

import (
	"context"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/storage"
)

// GetTournamentQuery returns one tournament with its participant
// count and the caller's registration flag.
type GetTournamentQuery struct {
	datastore storage.TournamentStore
	logger    logger.Logger
}

type GetTournamentRequest struct {
	Principal    string
	TournamentID string
}

func NewGetTournamentQuery(datastore storage.TournamentStore, logger logger.Logger) *GetTournamentQuery {
	return &GetTournamentQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *GetTournamentQuery) Execute(ctx context.Context, req *GetTournamentRequest) (*TournamentResponse, error) {
	rec, err := q.datastore.GetTournament(ctx, req.TournamentID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "tournament", req.TournamentID)
	}
	return tournamentFromStorage(rec), nil
}
