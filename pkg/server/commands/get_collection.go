package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/query"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// GetCollectionQuery returns one collection with the number of its
// items visible to the caller.
type GetCollectionQuery struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

type GetCollectionRequest struct {
	Principal    string
	CollectionID string
}

func NewGetCollectionQuery(datastore storage.CollectionStore, logger logger.Logger) *GetCollectionQuery {
	return &GetCollectionQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *GetCollectionQuery) Execute(ctx context.Context, req *GetCollectionRequest) (*CollectionResponse, error) {
	rec, err := q.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "collection", req.CollectionID)
	}

	if err := checkReadAccess(rec.Visibility, rec.OwnerID, req.Principal, "collection", req.CollectionID); err != nil {
		return nil, err
	}

	spec, err := query.Build(query.Items, req.Principal, map[string]string{"limit": "1"})
	if err != nil {
		return nil, serverErrors.NewInternalError("", err)
	}
	_, itemCount, err := q.datastore.ListCollectionItems(ctx, req.CollectionID, spec)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "failed to count collection items",
			zap.String("collection_id", req.CollectionID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	return collectionFromStorage(rec, itemCount), nil
}
