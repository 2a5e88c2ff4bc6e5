package seeding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/chatorder/pkg/enums/orderstatus"
	"github.com/appetiteclub/chatorder/pkg/enums/servicetype"
)

// CreatedBy marks every document written by the demo seed so clear-demo can
// find them again.
const CreatedBy = "demo-seed"

type demoItem struct {
	name      string
	variation string
	code      string
	addOns    []bson.M
	quantity  int
	unit      int64
}

// DemoOrder is one order header and its items, shaped like the documents the
// checkout service writes.
type DemoOrder struct {
	Order bson.M
	Items []bson.M
}

// DemoOrders builds orders covering every service type and several statuses.
// Fields that do not apply to the service type are stored as null.
func DemoOrders(now time.Time) []DemoOrder {
	return []DemoOrder{
		buildOrder(now.Add(-95*time.Minute), "Ana Cruz", "09171234567", servicetype.Types.Delivery.Code(), orderstatus.Statuses.Completed.Code(), "GCash",
			bson.M{"address": "12 Mabini St, Poblacion", "landmark": "Beside the blue gate"},
			"", []demoItem{
				{name: "Ham Stack", variation: "FULL", code: "HS-F", quantity: 1, unit: 190,
					addOns: []bson.M{{"name": "Extra Cheese", "quantity": 2}}},
				{name: "Iced Latte", variation: "Large", code: "IL-L", quantity: 2, unit: 145},
			}),
		buildOrder(now.Add(-40*time.Minute), "Ben Santos", "09281112222", servicetype.Types.Pickup.Code(), orderstatus.Statuses.Preparing.Code(), "Maya",
			bson.M{"pickup_window": "15-20 minutes"},
			"Less ice please", []demoItem{
				{name: "Chicken Pesto Melt", quantity: 1, unit: 155},
				{name: "Iced Latte", variation: "Regular", code: "IL-R", quantity: 1, unit: 150,
					addOns: []bson.M{{"name": "Extra Shot", "quantity": 1}}},
			}),
		buildOrder(now.Add(-10*time.Minute), "Carla Reyes", "09395556666", servicetype.Types.DineIn.Code(), orderstatus.Statuses.Pending.Code(), "GCash",
			bson.M{"party_size": 4, "preferred_time": "2026-10-19T19:30"},
			"", []demoItem{
				{name: "Ham Stack", variation: "HALF", code: "HS-H", quantity: 4, unit: 90},
			}),
	}
}

func buildOrder(at time.Time, customer, contact, service, status, payment string, fields bson.M, notes string, items []demoItem) DemoOrder {
	orderID := uuid.New().String()

	o := bson.M{
		"_id":            orderID,
		"customer_name":  customer,
		"contact_number": contact,
		"service_type":   service,
		"address":        nil,
		"landmark":       nil,
		"party_size":     nil,
		"preferred_time": nil,
		"pickup_window":  nil,
		"payment_method": payment,
		"notes":          nil,
		"status":         status,
		"created_at":     at,
		"updated_at":     at,
		"created_by":     CreatedBy,
	}
	for k, v := range fields {
		o[k] = v
	}
	if notes != "" {
		o["notes"] = notes
	}

	var total int64
	docs := make([]bson.M, 0, len(items))
	for i, it := range items {
		line := it.unit * int64(it.quantity)
		total += line

		doc := bson.M{
			"_id":             uuid.New().String(),
			"order_id":        orderID,
			"position":        i,
			"item_name":       it.name,
			"variation_name":  nil,
			"variation_code":  nil,
			"variation_label": nil,
			"add_ons":         it.addOns,
			"quantity":        it.quantity,
			"unit_price":      amount(it.unit),
			"line_total":      amount(line),
			"created_at":      at,
			"created_by":      CreatedBy,
		}
		if it.addOns == nil {
			doc["add_ons"] = []bson.M{}
		}
		if it.variation != "" {
			doc["variation_name"] = it.variation
			doc["variation_code"] = it.code
			doc["variation_label"] = "[" + it.code + "] " + it.variation
		}
		docs = append(docs, doc)
	}
	o["total"] = amount(total)

	return DemoOrder{Order: o, Items: docs}
}

func amount(v int64) primitive.Decimal128 {
	d, _ := primitive.ParseDecimal128(strconv.FormatInt(v, 10))
	return d
}

// SeedOrders writes the demo orders. Existing ids are left untouched.
func SeedOrders(ctx context.Context, db *mongo.Database, now time.Time) (int, error) {
	ordersCollection := db.Collection("orders")
	itemsCollection := db.Collection("order_items")

	demo := DemoOrders(now)
	for i, d := range demo {
		_, err := ordersCollection.UpdateOne(ctx, bson.M{"_id": d.Order["_id"]}, bson.M{"$setOnInsert": d.Order}, options.Update().SetUpsert(true))
		if err != nil {
			return i, fmt.Errorf("cannot create demo order %d: %w", i+1, err)
		}
		for _, item := range d.Items {
			_, err := itemsCollection.UpdateOne(ctx, bson.M{"_id": item["_id"]}, bson.M{"$setOnInsert": item}, options.Update().SetUpsert(true))
			if err != nil {
				return i, fmt.Errorf("cannot create demo order item: %w", err)
			}
		}
	}
	return len(demo), nil
}
