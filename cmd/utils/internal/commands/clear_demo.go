package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/appetiteclub/chatorder/cmd/utils/internal/seeding"
)

// ClearDemo removes the demo orders and their items. Orders placed through
// checkout are kept.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	itemsResult, err := db.Collection("order_items").DeleteMany(ctx, bson.M{"created_by": seeding.CreatedBy})
	if err != nil {
		return fmt.Errorf("delete demo order items: %w", err)
	}
	logger.Info("Deleted demo order items", "count", itemsResult.DeletedCount)

	ordersResult, err := db.Collection("orders").DeleteMany(ctx, bson.M{"created_by": seeding.CreatedBy})
	if err != nil {
		return fmt.Errorf("delete demo orders: %w", err)
	}
	logger.Info("Deleted demo orders", "count", ordersResult.DeletedCount)

	trackerResult, err := db.Collection("_seeds").DeleteOne(ctx, bson.M{"_id": demoOrdersSeedID})
	if err != nil {
		return fmt.Errorf("delete order seed tracker: %w", err)
	}
	logger.Info("Cleared order seed tracker", "deleted", trackerResult.DeletedCount)

	return nil
}
