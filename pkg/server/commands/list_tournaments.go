package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/query"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// ListTournamentsQuery pages through tournaments with each entry's
// participant count and the caller's registration flag.
type ListTournamentsQuery struct {
	datastore storage.TournamentStore
	logger    logger.Logger
}

type ListTournamentsRequest struct {
	Principal string
	Params    map[string]string
}

type ListTournamentsResponse struct {
	Tournaments []*TournamentResponse `json:"tournaments"`
	Pagination  Pagination            `json:"pagination"`
}

func NewListTournamentsQuery(datastore storage.TournamentStore, logger logger.Logger) *ListTournamentsQuery {
	return &ListTournamentsQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *ListTournamentsQuery) Execute(ctx context.Context, req *ListTournamentsRequest) (*ListTournamentsResponse, error) {
	spec, err := query.Build(query.Tournaments, req.Principal, req.Params)
	if err != nil {
		var invalidParam *query.InvalidParamError
		if errors.As(err, &invalidParam) {
			return nil, serverErrors.NewValidationError(invalidParam.Param, invalidParam.Reason)
		}
		return nil, serverErrors.NewInternalError("", err)
	}

	recs, total, err := q.datastore.ListTournaments(ctx, spec)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "failed to list tournaments", zap.Error(err))
		return nil, serverErrors.NewInternalError("", err)
	}

	tournaments := make([]*TournamentResponse, 0, len(recs))
	for _, rec := range recs {
		tournaments = append(tournaments, tournamentFromStorage(rec))
	}

	return &ListTournamentsResponse{
		Tournaments: tournaments,
		Pagination:  NewPagination(total, spec.Limit, spec.Offset),
	}, nil
}
