package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// AddCollectionItemCommand adds an item to a collection the caller
// owns. The caller must also be able to read the item.
type AddCollectionItemCommand struct {
	datastore storage.GalleryDatastore
	logger    logger.Logger
}

type CollectionItemRequest struct {
	Principal    string
	CollectionID string
	ItemID       string
}

func NewAddCollectionItemCommand(datastore storage.GalleryDatastore, logger logger.Logger) *AddCollectionItemCommand {
	return &AddCollectionItemCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *AddCollectionItemCommand) Execute(ctx context.Context, req *CollectionItemRequest) error {
	collection, err := c.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return notFoundOrInternal(err, "collection", req.CollectionID)
	}
	if err := checkWriteAccess(collection.OwnerID, req.Principal, "collection"); err != nil {
		return err
	}

	item, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return notFoundOrInternal(err, "item", req.ItemID)
	}
	if err := checkReadAccess(item.Visibility, item.OwnerID, req.Principal, "item", req.ItemID); err != nil {
		return err
	}

	if err := c.datastore.AddCollectionItem(ctx, req.CollectionID, req.ItemID); err != nil {
		if errors.Is(err, storage.ErrCollision) {
			return serverErrors.NewAlreadyExistsError("collection item")
		}
		c.logger.ErrorWithContext(ctx, "failed to add collection item",
			zap.String("collection_id", req.CollectionID),
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return serverErrors.NewInternalError("", err)
	}

	return nil
}

// RemoveCollectionItemCommand removes an item from a collection the
// caller owns.
type RemoveCollectionItemCommand struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

func NewRemoveCollectionItemCommand(datastore storage.CollectionStore, logger logger.Logger) *RemoveCollectionItemCommand {
	return &RemoveCollectionItemCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *RemoveCollectionItemCommand) Execute(ctx context.Context, req *CollectionItemRequest) error {
	collection, err := c.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return notFoundOrInternal(err, "collection", req.CollectionID)
	}
	if err := checkWriteAccess(collection.OwnerID, req.Principal, "collection"); err != nil {
		return err
	}

	if err := c.datastore.RemoveCollectionItem(ctx, req.CollectionID, req.ItemID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return serverErrors.NewNotFoundError("collection item", req.ItemID)
		}
		c.logger.ErrorWithContext(ctx, "failed to remove collection item",
			zap.String("collection_id", req.CollectionID),
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return serverErrors.NewInternalError("", err)
	}

	return nil
}
