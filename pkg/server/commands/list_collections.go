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

// ListCollectionsQuery pages through collections visible to the
// caller.
type ListCollectionsQuery struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

type ListCollectionsRequest struct {
	Principal string
	Params    map[string]string
}

type ListCollectionsResponse struct {
	Collections []*CollectionResponse `json:"collections"`
	Pagination  Pagination            `json:"pagination"`
}

func NewListCollectionsQuery(datastore storage.CollectionStore, logger logger.Logger) *ListCollectionsQuery {
	return &ListCollectionsQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *ListCollectionsQuery) Execute(ctx context.Context, req *ListCollectionsRequest) (*ListCollectionsResponse, error) {
	spec, err := query.Build(query.Collections, req.Principal, req.Params)
	if err != nil {
		var invalidParam *query.InvalidParamError
		if errors.As(err, &invalidParam) {
			return nil, serverErrors.NewValidationError(invalidParam.Param, invalidParam.Reason)
		}
		return nil, serverErrors.NewInternalError("", err)
	}

	recs, total, err := q.datastore.ListCollections(ctx, spec)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "failed to list collections", zap.Error(err))
		return nil, serverErrors.NewInternalError("", err)
	}

	collections := make([]*CollectionResponse, 0, len(recs))
	for _, rec := range recs {
		collections = append(collections, collectionFromStorage(&rec.Collection, rec.ItemCount))
	}

	return &ListCollectionsResponse{
		Collections: collections,
		Pagination:  NewPagination(total, spec.Limit, spec.Offset),
	}, nil
}
