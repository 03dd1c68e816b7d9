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

// ListItemsQuery pages through content items visible to the caller.
type ListItemsQuery struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type ListItemsRequest struct {
	// Principal is the authenticated caller, resolved by middleware.
	Principal string

	// Params are the raw query-string parameters. Build validates
	// them against the item resource's allow-lists.
	Params map[string]string
}

type ListItemsResponse struct {
	Items      []*Item    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func NewListItemsQuery(datastore storage.ItemStore, logger logger.Logger) *ListItemsQuery {
	return &ListItemsQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *ListItemsQuery) Execute(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	spec, err := query.Build(query.Items, req.Principal, req.Params)
	if err != nil {
		var invalidParam *query.InvalidParamError
		if errors.As(err, &invalidParam) {
			return nil, serverErrors.NewValidationError(invalidParam.Param, invalidParam.Reason)
		}
		return nil, serverErrors.NewInternalError("", err)
	}

	items, total, err := q.datastore.ListItems(ctx, spec)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "failed to list items", zap.Error(err))
		return nil, serverErrors.NewInternalError("", err)
	}

	return &ListItemsResponse{
		Items:      itemsFromStorage(items),
		Pagination: NewPagination(total, spec.Limit, spec.Offset),
	}, nil
}
