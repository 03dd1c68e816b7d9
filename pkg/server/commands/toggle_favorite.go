package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// ToggleFavoriteCommand flips the caller's favorite edge on an item.
// The command is a pure toggle; under concurrent calls the edge
// table's uniqueness constraint decides which caller created the edge
// and which one removed it.
type ToggleFavoriteCommand struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type ToggleFavoriteRequest struct {
	Principal string
	ItemID    string
}

type ToggleFavoriteResponse struct {
	ID       string `json:"id"`
	Favorite bool   `json:"favorite"`
}

func NewToggleFavoriteCommand(datastore storage.ItemStore, logger logger.Logger) *ToggleFavoriteCommand {
	return &ToggleFavoriteCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *ToggleFavoriteCommand) Execute(ctx context.Context, req *ToggleFavoriteRequest) (*ToggleFavoriteResponse, error) {
	item, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}
	if err := checkReadAccess(item.Visibility, item.OwnerID, req.Principal, "item", req.ItemID); err != nil {
		return nil, err
	}

	favorite, err := c.datastore.ToggleFavorite(ctx, req.Principal, req.ItemID)
	if err != nil {
		c.logger.ErrorWithContext(ctx, "failed to toggle favorite",
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	return &ToggleFavoriteResponse{
		ID:       req.ItemID,
		Favorite: favorite,
	}, nil
}
