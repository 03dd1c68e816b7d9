package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// DeleteCollectionCommand deletes a collection and its membership
// edges. Items in the collection are untouched.
type DeleteCollectionCommand struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

type DeleteCollectionRequest struct {
	Principal    string
	CollectionID string
}

func NewDeleteCollectionCommand(datastore storage.CollectionStore, logger logger.Logger) *DeleteCollectionCommand {
	return &DeleteCollectionCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *DeleteCollectionCommand) Execute(ctx context.Context, req *DeleteCollectionRequest) error {
	current, err := c.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return notFoundOrInternal(err, "collection", req.CollectionID)
	}
	if err := checkWriteAccess(current.OwnerID, req.Principal, "collection"); err != nil {
		return err
	}

	if err := c.datastore.DeleteCollection(ctx, req.CollectionID); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to delete collection",
			zap.String("collection_id", req.CollectionID),
			zap.Error(err),
		)
		return serverErrors.NewInternalError("", err)
	}

	return nil
}
