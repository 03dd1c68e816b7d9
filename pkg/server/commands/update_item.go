package commands

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// UpdateItemCommand overwrites an item's mutable fields. Only the
// owner may update; a non-owner gets forbidden even when the item is
// public.
type UpdateItemCommand struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type UpdateItemRequest struct {
	Principal  string
	ItemID     string
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category"`
	Visibility string   `json:"visibility"`
}

func NewUpdateItemCommand(datastore storage.ItemStore, logger logger.Logger) *UpdateItemCommand {
	return &UpdateItemCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *UpdateItemCommand) Execute(ctx context.Context, req *UpdateItemRequest) (*Item, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, serverErrors.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, serverErrors.NewValidationError("body", "must not be empty")
	}

	visibility := storage.Visibility(req.Visibility)
	switch visibility {
	case storage.VisibilityPrivate, storage.VisibilityPublic:
	default:
		return nil, serverErrors.NewValidationError("visibility", "must be 'private' or 'public'")
	}

	current, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}
	if err := checkWriteAccess(current.OwnerID, req.Principal, "item"); err != nil {
		return nil, err
	}

	item := &storage.ContentItem{
		ID:         req.ItemID,
		OwnerID:    current.OwnerID,
		Title:      req.Title,
		Body:       req.Body,
		Tags:       req.Tags,
		Category:   req.Category,
		Visibility: visibility,
	}

	if err := c.datastore.UpdateItem(ctx, item); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to update item",
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}

	updated, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}

	return itemFromStorage(updated), nil
}
