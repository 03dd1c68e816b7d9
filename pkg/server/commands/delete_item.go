package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// DeleteItemCommand deletes an item and cascades over its favorite,
// rating and collection-membership edges.
type DeleteItemCommand struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type DeleteItemRequest struct {
	Principal string
	ItemID    string
}

func NewDeleteItemCommand(datastore storage.ItemStore, logger logger.Logger) *DeleteItemCommand {
	return &DeleteItemCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *DeleteItemCommand) Execute(ctx context.Context, req *DeleteItemRequest) error {
	current, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return notFoundOrInternal(err, "item", req.ItemID)
	}
	if err := checkWriteAccess(current.OwnerID, req.Principal, "item"); err != nil {
		return err
	}

	if err := c.datastore.DeleteItem(ctx, req.ItemID); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to delete item",
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return serverErrors.NewInternalError("", err)
	}

	return nil
}
