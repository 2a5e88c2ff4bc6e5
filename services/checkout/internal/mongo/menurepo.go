package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
)

const (
	menuItemsCollection      = "menu_items"
	paymentMethodsCollection = "payment_methods"
)

type variationDocument struct {
	ID    string               `bson:"id"`
	Name  string               `bson:"name"`
	Code  string               `bson:"code,omitempty"`
	Price primitive.Decimal128 `bson:"price"`
}

type menuAddOnDocument struct {
	ID       string               `bson:"id"`
	Name     string               `bson:"name"`
	Category string               `bson:"category"`
	Price    primitive.Decimal128 `bson:"price"`
}

type menuItemDocument struct {
	ID            string                `bson:"_id"`
	Name          string                `bson:"name"`
	Description   string                `bson:"description,omitempty"`
	Category      string                `bson:"category"`
	BasePrice     primitive.Decimal128  `bson:"base_price"`
	DiscountPrice *primitive.Decimal128 `bson:"discount_price,omitempty"`
	IsOnDiscount  bool                  `bson:"is_on_discount"`
	Variations    []variationDocument   `bson:"variations"`
	AddOns        []menuAddOnDocument   `bson:"add_ons"`
	Available     bool                  `bson:"available"`
	DisplayOrder  int                   `bson:"display_order"`
}

// MenuRepo implements menu.Catalog over the menu_items collection.
type MenuRepo struct {
	collection *mongo.Collection
}

func NewMenuRepo(db *mongo.Database) *MenuRepo {
	return &MenuRepo{
		collection: db.Collection(menuItemsCollection),
	}
}

func (r *MenuRepo) GetItem(ctx context.Context, id uuid.UUID) (*menu.MenuItem, error) {
	var doc menuItemDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get menu item: %w", err)
	}
	return fromMenuItemDocument(doc)
}

func (r *MenuRepo) ListItems(ctx context.Context) ([]*menu.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "category", Value: 1},
		{Key: "display_order", Value: 1},
		{Key: "name", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []menuItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}

	result := make([]*menu.MenuItem, 0, len(docs))
	for _, d := range docs {
		item, err := fromMenuItemDocument(d)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

// Save upserts an item. Used by seeding and the utils command.
func (r *MenuRepo) Save(ctx context.Context, item *menu.MenuItem) error {
	if item == nil {
		return fmt.Errorf("menu item is nil")
	}

	doc, err := toMenuItemDocument(item)
	if err != nil {
		return err
	}

	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot save menu item: %w", err)
	}
	return nil
}

func toMenuItemDocument(item *menu.MenuItem) (menuItemDocument, error) {
	base, err := toDecimal128(item.BasePrice)
	if err != nil {
		return menuItemDocument{}, err
	}

	doc := menuItemDocument{
		ID:           item.ID.String(),
		Name:         item.Name,
		Description:  item.Description,
		Category:     item.Category,
		BasePrice:    base,
		IsOnDiscount: item.IsOnDiscount,
		Available:    item.Available,
		DisplayOrder: item.DisplayOrder,
		Variations:   make([]variationDocument, 0, len(item.Variations)),
		AddOns:       make([]menuAddOnDocument, 0, len(item.AddOns)),
	}

	if item.DiscountPrice != nil {
		dp, err := toDecimal128(*item.DiscountPrice)
		if err != nil {
			return menuItemDocument{}, err
		}
		doc.DiscountPrice = &dp
	}

	for _, v := range item.Variations {
		p, err := toDecimal128(v.Price)
		if err != nil {
			return menuItemDocument{}, err
		}
		doc.Variations = append(doc.Variations, variationDocument{ID: v.ID.String(), Name: v.Name, Code: v.Code, Price: p})
	}

	for _, a := range item.AddOns {
		p, err := toDecimal128(a.Price)
		if err != nil {
			return menuItemDocument{}, err
		}
		doc.AddOns = append(doc.AddOns, menuAddOnDocument{ID: a.ID.String(), Name: a.Name, Category: a.Category, Price: p})
	}

	return doc, nil
}

func fromMenuItemDocument(d menuItemDocument) (*menu.MenuItem, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot parse menu item id %q: %w", d.ID, err)
	}
	base, err := fromDecimal128(d.BasePrice)
	if err != nil {
		return nil, err
	}

	item := &menu.MenuItem{
		ID:           id,
		Name:         d.Name,
		Description:  d.Description,
		Category:     d.Category,
		BasePrice:    base,
		IsOnDiscount: d.IsOnDiscount,
		Available:    d.Available,
		DisplayOrder: d.DisplayOrder,
	}

	if d.DiscountPrice != nil {
		dp, err := fromDecimal128(*d.DiscountPrice)
		if err != nil {
			return nil, err
		}
		item.DiscountPrice = &dp
	}

	for _, v := range d.Variations {
		vid, err := uuid.Parse(v.ID)
		if err != nil {
			return nil, fmt.Errorf("cannot parse variation id %q: %w", v.ID, err)
		}
		p, err := fromDecimal128(v.Price)
		if err != nil {
			return nil, err
		}
		item.Variations = append(item.Variations, menu.Variation{ID: vid, Name: v.Name, Code: v.Code, Price: p})
	}

	for _, a := range d.AddOns {
		aid, err := uuid.Parse(a.ID)
		if err != nil {
			return nil, fmt.Errorf("cannot parse add-on id %q: %w", a.ID, err)
		}
		p, err := fromDecimal128(a.Price)
		if err != nil {
			return nil, err
		}
		item.AddOns = append(item.AddOns, menu.AddOn{ID: aid, Name: a.Name, Category: a.Category, Price: p})
	}

	return item, nil
}

type paymentMethodDocument struct {
	ID            string `bson:"_id"`
	Name          string `bson:"name"`
	AccountNumber string `bson:"account_number"`
	AccountName   string `bson:"account_name"`
	QRCodeURL     string `bson:"qr_code_url,omitempty"`
	Active        bool   `bson:"active"`
	SortOrder     int    `bson:"sort_order"`
}

// PaymentMethodRepo implements menu.PaymentMethods.
type PaymentMethodRepo struct {
	collection *mongo.Collection
}

func NewPaymentMethodRepo(db *mongo.Database) *PaymentMethodRepo {
	return &PaymentMethodRepo{
		collection: db.Collection(paymentMethodsCollection),
	}
}

// ListActive returns active methods ordered by sort order, then name.
func (r *PaymentMethodRepo) ListActive(ctx context.Context) ([]menu.PaymentMethod, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("cannot list payment methods: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []paymentMethodDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode payment methods: %w", err)
	}

	result := make([]menu.PaymentMethod, 0, len(docs))
	for _, d := range docs {
		result = append(result, fromPaymentMethodDocument(d))
	}
	menu.SortPaymentMethods(result)
	return result, nil
}

func (r *PaymentMethodRepo) Get(ctx context.Context, id string) (*menu.PaymentMethod, error) {
	var doc paymentMethodDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get payment method: %w", err)
	}
	pm := fromPaymentMethodDocument(doc)
	return &pm, nil
}

func (r *PaymentMethodRepo) Save(ctx context.Context, pm menu.PaymentMethod) error {
	doc := paymentMethodDocument(pm)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot save payment method: %w", err)
	}
	return nil
}

func fromPaymentMethodDocument(d paymentMethodDocument) menu.PaymentMethod {
	return menu.PaymentMethod(d)
}
