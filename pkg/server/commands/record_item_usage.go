package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/galleria-app/galleria/pkg/logger"
	serverErrors "github.com/galleria-app/galleria/pkg/server/errors"
	"github.com/galleria-app/galleria/pkg/storage"
)

// RecordItemUsageCommand bumps an item's usage counter. The counter
// is monotonic; any caller who can read the item may record a use.
type RecordItemUsageCommand struct {
	datastore storage.ItemStore
	logger    logger.Logger
}

type RecordItemUsageRequest struct {
	Principal string
	ItemID    string
}

type RecordItemUsageResponse struct {
	ID         string `json:"id"`
	UsageCount int64  `json:"usage_count"`
}

func NewRecordItemUsageCommand(datastore storage.ItemStore, logger logger.Logger) *RecordItemUsageCommand {
	return &RecordItemUsageCommand{
		datastore: datastore,
		logger:    logger,
	}
}

func (c *RecordItemUsageCommand) Execute(ctx context.Context, req *RecordItemUsageRequest) (*RecordItemUsageResponse, error) {
	item, err := c.datastore.GetItem(ctx, req.ItemID, req.Principal)
	if err != nil {
		return nil, notFoundOrInternal(err, "item", req.ItemID)
	}
	if err := checkReadAccess(item.Visibility, item.OwnerID, req.Principal, "item", req.ItemID); err != nil {
		return nil, err
	}

	if err := c.datastore.IncrementItemUsage(ctx, req.ItemID); err != nil {
		c.logger.ErrorWithContext(ctx, "failed to record item usage",
			zap.String("item_id", req.ItemID),
			zap.Error(err),
		)
		return nil, serverErrors.NewInternalError("", err)
	}

	return &RecordItemUsageResponse{
		ID:         req.ItemID,
		UsageCount: item.UsageCount + 1,
	}, nil
}
