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

// ListCollectionItemsQuery pages through one collection's items. The
// collection itself is read-checked; the item page then applies the
// same visibility predicates as the main item listing.
type ListCollectionItemsQuery struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

type ListCollectionItemsRequest struct {
	Principal    string
	CollectionID string
	Params       map[string]string
}

func NewListCollectionItemsQuery(datastore storage.CollectionStore, logger logger.Logger) *ListCollectionItemsQuery {
	return &ListCollectionItemsQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *ListCollectionItemsQuery) Execute(ctx context.Context, req *ListCollectionItemsRequest) (*ListItemsResponse, error) {
	collection, err := q.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "collection", req.CollectionID)
	}
	if err := checkReadAccess(collection.Visibility, collection.OwnerID, req.Principal, "collection", req.CollectionID); err != nil {
		return nil, err
	}

	spec, err := query.Build(query.Items, req.Principal, req.Params)
	if err != nil {
		var invalidParam *query.InvalidParamError
		if errors.As(err, &invalidParam) {
			return nil, serverErrors.NewValidationError(invalidParam.Param, invalidParam.Reason)
		}
		return nil, serverErrors.NewInternalError("", err)
	}

	items, total, err := q.datastore.ListCollectionItems(ctx, req.CollectionID, spec)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "failed to list collection items",
			zap.String("collection_id", req.CollectionID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	return &ListItemsResponse{
		Items:      itemsFromStorage(items),
		Pagination: NewPagination(total, spec.Limit, spec.Offset),
	}, nil
}
