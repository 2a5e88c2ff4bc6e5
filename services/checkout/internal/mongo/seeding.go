package mongo

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
)

// Seeds returns the demo menu and payment methods.
func Seeds(db *mongo.Database) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2026-10-01_checkout_payment_methods",
			Description: "Seed the payment methods offered at checkout",
			Run: func(ctx context.Context) error {
				repo := NewPaymentMethodRepo(db)
				for _, pm := range DemoPaymentMethods() {
					if err := repo.Save(ctx, pm); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID:          "2026-10-01_checkout_demo_menu",
			Description: "Seed a small cafe menu with variations and add-ons",
			Run: func(ctx context.Context) error {
				repo := NewMenuRepo(db)
				for _, item := range DemoMenu() {
					if err := repo.Save(ctx, item); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// SeedingFunc returns a lifecycle OnStart function that applies Seeds.
func SeedingFunc(appName string, dbFn func() *mongo.Database, logger apt.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Info("Applying checkout database seeds...")
		db := dbFn()
		tracker := seed.NewMongoTracker(db)
		if err := seed.Apply(ctx, tracker, Seeds(db), appName); err != nil {
			return fmt.Errorf("apply seeds: %w", err)
		}
		logger.Info("Checkout database seeds applied successfully")
		return nil
	}
}

// ClearDemo removes every seeded menu item and payment method.
func ClearDemo(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{menuItemsCollection, paymentMethodsCollection} {
		if _, err := db.Collection(name).DeleteMany(ctx, map[string]interface{}{}); err != nil {
			return fmt.Errorf("cannot clear %s: %w", name, err)
		}
	}
	return nil
}

// Collections lists every collection owned by the checkout service.
func Collections() []string {
	return []string{ordersCollection, orderItemsCollection, menuItemsCollection, paymentMethodsCollection}
}

func DemoPaymentMethods() []menu.PaymentMethod {
	return []menu.PaymentMethod{
		{ID: "gcash", Name: "GCash", AccountNumber: "0917 555 0101", AccountName: "Daniel's Cafe", Active: true, SortOrder: 1},
		{ID: "maya", Name: "Maya", AccountNumber: "0918 555 0102", AccountName: "Daniel's Cafe", Active: true, SortOrder: 2},
		{ID: "bank-transfer", Name: "Bank Transfer", AccountNumber: "0012-3456-7890", AccountName: "Daniel's Food Services", Active: true, SortOrder: 3},
		{ID: "cash", Name: "Cash", Active: false, SortOrder: 9},
	}
}

func DemoMenu() []*menu.MenuItem {
	toppings := []menu.AddOn{
		{ID: uuid.MustParse("6f1c7a2e-8d1b-4a61-9a0e-2c1f0b7d4a01"), Name: "Extra Cheese", Category: "Toppings", Price: decimal.NewFromInt(20)},
		{ID: uuid.MustParse("6f1c7a2e-8d1b-4a61-9a0e-2c1f0b7d4a02"), Name: "Bacon", Category: "Toppings", Price: decimal.NewFromInt(35)},
		{ID: uuid.MustParse("6f1c7a2e-8d1b-4a61-9a0e-2c1f0b7d4a03"), Name: "Fried Egg", Category: "Toppings", Price: decimal.NewFromInt(15)},
		{ID: uuid.MustParse("6f1c7a2e-8d1b-4a61-9a0e-2c1f0b7d4a04"), Name: "Garlic Mayo", Category: "Sauces", Price: decimal.NewFromInt(10)},
	}
	drinkExtras := []menu.AddOn{
		{ID: uuid.MustParse("6f1c7a2e-8d1b-4a61-9a0e-2c1f0b7d4a11"), Name: "Extra Shot", Category: "Coffee", Price: decimal.NewFromInt(30)},
		{ID: uuid.MustParse("6f1c7a2e-8d1b-4a61-9a0e-2c1f0b7d4a12"), Name: "Oat Milk", Category: "Milk", Price: decimal.NewFromInt(25)},
	}
	meltPromo := decimal.NewFromInt(155)

	return []*menu.MenuItem{
		{
			ID:          uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a0001"),
			Name:        "Ham Stack",
			Description: "Stacked smoked ham on toasted brioche",
			Category:    "Sandwiches",
			BasePrice:   decimal.NewFromInt(130),
			Variations: []menu.Variation{
				{ID: uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a1001"), Name: "FULL", Code: "HS-F", Price: decimal.NewFromInt(150)},
				{ID: uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a1002"), Name: "HALF", Code: "HS-H", Price: decimal.NewFromInt(90)},
			},
			AddOns:       toppings,
			Available:    true,
			DisplayOrder: 1,
		},
		{
			ID:           uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a0002"),
			Name:         "Chicken Pesto Melt",
			Category:     "Sandwiches",
			BasePrice:     decimal.NewFromInt(175),
			DiscountPrice: &meltPromo,
			IsOnDiscount:  true,
			AddOns:        toppings,
			Available:     true,
			DisplayOrder:  2,
		},
		{
			ID:        uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a0003"),
			Name:      "Iced Latte",
			Category:  "Drinks",
			BasePrice: decimal.NewFromInt(120),
			Variations: []menu.Variation{
				{ID: uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a3001"), Name: "Regular", Code: "IL-R", Price: decimal.NewFromInt(120)},
				{ID: uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a3002"), Name: "Large", Code: "IL-L", Price: decimal.NewFromInt(145)},
			},
			AddOns:       drinkExtras,
			Available:    true,
			DisplayOrder: 1,
		},
		{
			ID:           uuid.MustParse("3b0e5f3c-2f7e-4e2f-b6a1-5d9c1e0a0004"),
			Name:         "Hot Chocolate",
			Category:     "Drinks",
			BasePrice:    decimal.NewFromInt(110),
			Available:    false,
			DisplayOrder: 2,
		},
	}
}
