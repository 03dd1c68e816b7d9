package commands

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// CreateCollectionCommand creates a collection owned by the caller.
type CreateCollectionCommand struct {
	datastore storage.CollectionStore
	logger    logger.Logger
}

type CreateCollectionRequest struct {
	Principal   string
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

func NewCreateCollectionCommand(datastore storage.CollectionStore, logger logger.Logger) *CreateCollectionCommand {
	return &CreateCollectionCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *CreateCollectionCommand) Execute(ctx context.Context, req *CreateCollectionRequest) (*CollectionResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, serverErrors.NewValidationError("name", "must not be empty")
	}

	visibility := storage.VisibilityPrivate
	switch req.Visibility {
	case "", string(storage.VisibilityPrivate):
	case string(storage.VisibilityPublic):
		visibility = storage.VisibilityPublic
	default:
		return nil, serverErrors.NewValidationError("visibility", "must be 'private' or 'public'")
	}

	collection := &storage.Collection{
		OwnerID:     req.Principal,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  visibility,
	}

	if err := c.datastore.CreateCollection(ctx, collection); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to create collection", zap.Error(err))
		return nil, serverErrors.NewInternalError("", err)
	}

	return collectionFromStorage(collection, 0), nil
}
