package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/chatorder/services/checkout/internal/order"
)

const (
	ordersCollection     = "orders"
	orderItemsCollection = "order_items"
)

type orderDocument struct {
	ID            string               `bson:"_id"`
	CustomerName  string               `bson:"customer_name"`
	ContactNumber string               `bson:"contact_number"`
	ServiceType   string               `bson:"service_type"`
	Address       *string              `bson:"address"`
	Landmark      *string              `bson:"landmark"`
	PartySize     *int                 `bson:"party_size"`
	PreferredTime *string              `bson:"preferred_time"`
	PickupWindow  *string              `bson:"pickup_window"`
	PaymentMethod string               `bson:"payment_method"`
	Notes         *string              `bson:"notes"`
	Total         primitive.Decimal128 `bson:"total"`
	Status        string               `bson:"status"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

type addOnDocument struct {
	Name     string `bson:"name"`
	Quantity int    `bson:"quantity"`
}

type orderItemDocument struct {
	ID             string               `bson:"_id"`
	OrderID        string               `bson:"order_id"`
	Position       int                  `bson:"position"`
	ItemName       string               `bson:"item_name"`
	VariationName  *string              `bson:"variation_name"`
	VariationCode  *string              `bson:"variation_code"`
	VariationLabel *string              `bson:"variation_label"`
	AddOns         []addOnDocument      `bson:"add_ons"`
	Quantity       int                  `bson:"quantity"`
	UnitPrice      primitive.Decimal128 `bson:"unit_price"`
	LineTotal      primitive.Decimal128 `bson:"line_total"`
	CreatedAt      time.Time            `bson:"created_at"`
}

// documentWriter is the part of *mongo.Collection used to write an order.
type documentWriter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// OrderStore implements order.Store. With transactions enabled the header
// and its items are written in one multi-document transaction.
type OrderStore struct {
	client       *mongo.Client
	orders       *mongo.Collection
	items        *mongo.Collection
	transactions bool
	logger       apt.Logger
}

func NewOrderStore(db *mongo.Database, transactions bool, logger apt.Logger) *OrderStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderStore{
		client:       db.Client(),
		orders:       db.Collection(ordersCollection),
		items:        db.Collection(orderItemsCollection),
		transactions: transactions,
		logger:       logger,
	}
}

// EnsureIndexes creates the indexes used by the admin listing and item
// lookups.
func (s *OrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("cannot create order indexes: %w", err)
	}

	_, err = s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "position", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("cannot create order item index: %w", err)
	}

	return nil
}

func (s *OrderStore) CreateWithItems(ctx context.Context, o *order.Order, items []*order.OrderItem) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	doc, err := toOrderDocument(o)
	if err != nil {
		return err
	}

	itemDocs := make([]interface{}, 0, len(items))
	for i, it := range items {
		d, err := toOrderItemDocument(it, i)
		if err != nil {
			return err
		}
		itemDocs = append(itemDocs, d)
	}

	if !s.transactions {
		return createSequential(ctx, s.orders, s.items, doc, itemDocs, s.logger)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("cannot start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, insertAll(sc, s.orders, s.items, doc, itemDocs)
	})
	return err
}

// insertAll writes the header, then its items. Inside a transaction an error
// aborts both writes.
func insertAll(ctx context.Context, orders, items documentWriter, doc orderDocument, itemDocs []interface{}) error {
	if _, err := orders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}
	if len(itemDocs) == 0 {
		return nil
	}
	if _, err := items.InsertMany(ctx, itemDocs); err != nil {
		return fmt.Errorf("cannot create order items: %w", err)
	}
	return nil
}

// createSequential writes without a transaction. When the items fail the
// header and any items already written are deleted again. A failed cleanup
// is logged with the order id.
func createSequential(ctx context.Context, orders, items documentWriter, doc orderDocument, itemDocs []interface{}, logger apt.Logger) error {
	if _, err := orders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	if len(itemDocs) == 0 {
		return nil
	}

	_, err := items.InsertMany(ctx, itemDocs)
	if err == nil {
		return nil
	}
	itemsErr := fmt.Errorf("cannot create order items: %w", err)

	if _, delErr := items.DeleteMany(ctx, bson.M{"order_id": doc.ID}); delErr != nil {
		logger.Error("partial order items left behind", "order_id", doc.ID, "error", delErr)
		itemsErr = errors.Join(itemsErr, fmt.Errorf("cannot delete order items: %w", delErr))
	}

	if _, delErr := orders.DeleteOne(ctx, bson.M{"_id": doc.ID}); delErr != nil {
		logger.Error("order header left without items", "order_id", doc.ID, "error", delErr)
		return errors.Join(itemsErr, fmt.Errorf("cannot delete order: %w", delErr))
	}
	return itemsErr
}

func (s *OrderStore) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var doc orderDocument
	err := s.orders.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return fromOrderDocument(doc)
}

func (s *OrderStore) List(ctx context.Context, filter order.Filter) ([]*order.Order, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := s.orders.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	result := make([]*order.Order, 0, len(docs))
	for _, d := range docs {
		o, err := fromOrderDocument(d)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}

func (s *OrderStore) ListItems(ctx context.Context, orderID uuid.UUID) ([]*order.OrderItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := s.items.Find(ctx, bson.M{"order_id": orderID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list order items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode order items: %w", err)
	}

	result := make([]*order.OrderItem, 0, len(docs))
	for _, d := range docs {
		it, err := fromOrderItemDocument(d)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}

	result, err := s.orders.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("cannot update order status: %w", err)
	}

	if result.MatchedCount == 0 {
		return order.ErrOrderNotFound
	}

	return nil
}

func (s *OrderStore) Stats(ctx context.Context, dayStart time.Time) (order.Stats, error) {
	stats := order.Stats{ByStatus: make(map[string]int64)}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, fmt.Errorf("cannot aggregate order stats: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return stats, fmt.Errorf("cannot decode order stats: %w", err)
	}

	for _, g := range groups {
		stats.ByStatus[g.Status] = g.Count
		stats.Total += g.Count
	}

	today, err := s.orders.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": dayStart}})
	if err != nil {
		return stats, fmt.Errorf("cannot count today's orders: %w", err)
	}
	stats.Today = today

	return stats, nil
}

func toOrderDocument(o *order.Order) (orderDocument, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDocument{}, err
	}
	return orderDocument{
		ID:            o.ID.String(),
		CustomerName:  o.CustomerName,
		ContactNumber: o.ContactNumber,
		ServiceType:   o.ServiceType,
		Address:       o.Address,
		Landmark:      o.Landmark,
		PartySize:     o.PartySize,
		PreferredTime: o.PreferredTime,
		PickupWindow:  o.PickupWindow,
		PaymentMethod: o.PaymentMethod,
		Notes:         o.Notes,
		Total:         total,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}, nil
}

func fromOrderDocument(d orderDocument) (*order.Order, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot parse order id %q: %w", d.ID, err)
	}
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return nil, err
	}
	return &order.Order{
		ID:            id,
		CustomerName:  d.CustomerName,
		ContactNumber: d.ContactNumber,
		ServiceType:   d.ServiceType,
		Address:       d.Address,
		Landmark:      d.Landmark,
		PartySize:     d.PartySize,
		PreferredTime: d.PreferredTime,
		PickupWindow:  d.PickupWindow,
		PaymentMethod: d.PaymentMethod,
		Notes:         d.Notes,
		Total:         total,
		Status:        d.Status,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func toOrderItemDocument(it *order.OrderItem, position int) (orderItemDocument, error) {
	unit, err := toDecimal128(it.UnitPrice)
	if err != nil {
		return orderItemDocument{}, err
	}
	line, err := toDecimal128(it.LineTotal)
	if err != nil {
		return orderItemDocument{}, err
	}

	addOns := make([]addOnDocument, 0, len(it.AddOns))
	for _, a := range it.AddOns {
		addOns = append(addOns, addOnDocument{Name: a.Name, Quantity: a.Quantity})
	}

	return orderItemDocument{
		ID:             it.ID.String(),
		OrderID:        it.OrderID.String(),
		Position:       position,
		ItemName:       it.ItemName,
		VariationName:  it.VariationName,
		VariationCode:  it.VariationCode,
		VariationLabel: it.VariationLabel,
		AddOns:         addOns,
		Quantity:       it.Quantity,
		UnitPrice:      unit,
		LineTotal:      line,
		CreatedAt:      it.CreatedAt,
	}, nil
}

func fromOrderItemDocument(d orderItemDocument) (*order.OrderItem, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("cannot parse order item id %q: %w", d.ID, err)
	}
	orderID, err := uuid.Parse(d.OrderID)
	if err != nil {
		return nil, fmt.Errorf("cannot parse order id %q: %w", d.OrderID, err)
	}
	unit, err := fromDecimal128(d.UnitPrice)
	if err != nil {
		return nil, err
	}
	line, err := fromDecimal128(d.LineTotal)
	if err != nil {
		return nil, err
	}

	addOns := make([]order.AddOnLine, 0, len(d.AddOns))
	for _, a := range d.AddOns {
		addOns = append(addOns, order.AddOnLine{Name: a.Name, Quantity: a.Quantity})
	}

	return &order.OrderItem{
		ID:             id,
		OrderID:        orderID,
		ItemName:       d.ItemName,
		VariationName:  d.VariationName,
		VariationCode:  d.VariationCode,
		VariationLabel: d.VariationLabel,
		AddOns:         addOns,
		Quantity:       d.Quantity,
		UnitPrice:      unit,
		LineTotal:      line,
		CreatedAt:      d.CreatedAt,
	}, nil
}
