package commands

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// UpdateCollectionCommand overwrites a collection's mutable fields.
type UpdateCollectionCommand struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

type UpdateCollectionRequest struct {
	Principal    string
	CollectionID string
	Name         string `json:"name"`
	Description  string `json:"description"`
	Visibility   string `json:"visibility"`
}

func NewUpdateCollectionCommand(datastore storage.CollectionStore, logger logger.Logger) *UpdateCollectionCommand {
	return &UpdateCollectionCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *UpdateCollectionCommand) Execute(ctx context.Context, req *UpdateCollectionRequest) (*CollectionResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, serverErrors.NewValidationError("name", "must not be empty")
	}

	visibility := storage.Visibility(req.Visibility)
	switch visibility {
	case storage.VisibilityPrivate, storage.VisibilityPublic:
	default:
		return nil, serverErrors.NewValidationError("visibility", "must be 'private' or 'public'")
	}

	current, err := c.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "collection", req.CollectionID)
	}
	if err := checkWriteAccess(current.OwnerID, req.Principal, "collection"); err != nil {
		return nil, err
	}

	collection := &storage.Collection{
		ID:          req.CollectionID,
		OwnerID:     current.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  visibility,
	}

	if err := c.datastore.UpdateCollection(ctx, collection); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to update collection",
			zap.String("collection_id", req.CollectionID),
			zap.Error(err),
		)
		return nil, notFoundOrInternal(err, "collection", req.CollectionID)
	}

	updated, err := c.datastore.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, notFoundOrInternal(err, "collection", req.CollectionID)
	}

	return collectionFromStorage(updated, 0), nil
}
