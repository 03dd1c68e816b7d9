package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// RateItemCommand records the caller's 1..5 rating of an item. A
// repeat rating overwrites the previous one.
type RateItemCommand struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type RateItemRequest struct {
	Principal string
	ItemID    string
	Rating    int `json:"rating"`
}

type RateItemResponse struct {
	ID     string  `json:"id"`
	Rating float64 `json:"rating"`
}

func NewRateItemCommand(datastore storage.ItemStore, logger logger.Logger) *RateItemCommand {
	return &RateItemCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *RateItemCommand) Execute(ctx context.Context, req *RateItemRequest) (*RateItemResponse, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, serverErrors.NewValidationError("rating", "must be between 1 and 5")
	}

	item, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}
	if err := checkReadAccess(item.Visibility, item.OwnerID, req.Principal, "item", req.ItemID); err != nil {
		return nil, err
	}

	if err := c.datastore.RateItem(ctx, req.Principal, req.ItemID, req.Rating); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to rate item",
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	rated, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}

	return &RateItemResponse{
		ID:     req.ItemID,
		Rating: rated.Rating,
	}, nil
}
