package commands

import (
	"context"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/storage"
)

// GetItemQuery returns one item with the caller's stats, hiding
// private items from non-owners.
type GetItemQuery struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type GetItemRequest struct {
	Principal string
	ItemID    string
}

func NewGetItemQuery(datastore storage.ItemStore, logger logger.Logger) *GetItemQuery {
	return &GetItemQuery{
		datastore: datastore,
		logger:    logger,
	}
}

func (q *GetItemQuery) Execute(ctx context.Context, req *GetItemRequest) (*Item, error) {
	rec, err := q.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}

	if err := checkReadAccess(rec.Visibility, rec.OwnerID, req.Principal, "item", req.ItemID); err != nil {
		return nil, err
	}

	return itemFromStorage(rec), nil
}
