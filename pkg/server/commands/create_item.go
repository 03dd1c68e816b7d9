package commands

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// CreateItemCommand creates a content item owned by the caller.
type CreateItemCommand struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type CreateItemRequest struct {
	Principal  string
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category"`
	Visibility string   `json:"visibility"`
}

func NewCreateItemCommand(datastore storage.ItemStore, logger logger.Logger) *CreateItemCommand {
	return &CreateItemCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *CreateItemCommand) Execute(ctx context.Context, req *CreateItemRequest) (*Item, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, serverErrors.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, serverErrors.NewValidationError("body", "must not be empty")
	}

	visibility := storage.VisibilityPrivate
	switch req.Visibility {
	case "", string(storage.VisibilityPrivate):
	case string(storage.VisibilityPublic):
		visibility = storage.VisibilityPublic
	default:
		return nil, serverErrors.NewValidationError("visibility", "must be 'private' or 'public'")
	}

	item := &storage.ContentItem{
		OwnerID:    req.Principal,
		Title:      req.Title,
		Body:       req.Body,
		Tags:       req.Tags,
		Category:   req.Category,
		Visibility: visibility,
	}

	if err := c.datastore.CreateItem(ctx, item); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to create item", zap.Error(err))
		return nil, serverErrors.NewInternalError("", err)
	}

	return itemFromStorage(&storage.ItemWithStats{ContentItem: *item}), nil
}
