package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase = "chatorder"
	DefaultURL      = "mongodb://localhost:27017"
)

// BaseRepo owns the client shared by the order store and the menu readers.
type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
	config *apt.Config
}

func NewBaseRepo(config *apt.Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	connString := r.config.GetStringOrDef("db.mongo.url", DefaultURL)
	dbName := r.config.GetStringOrDef("db.mongo.name", DefaultDatabase)
	appName := r.config.GetStringOrDef("app.name", "checkout")

	clientOptions := options.Client().ApplyURI(connString).
		SetAppName(appName).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	r.logger.Info("order database connected",
		"url", redactURL(connString),
		"database", dbName,
		"transactions", r.TransactionsEnabled())
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("order database disconnected")
	}
	return nil
}

// Ping reports whether the server is reachable.
func (r *BaseRepo) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("mongo client not started")
	}
	return r.client.Ping(ctx, nil)
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

// TransactionsEnabled is true unless db.mongo.transactions is set false,
// e.g. for a standalone server without a replica set.
func (r *BaseRepo) TransactionsEnabled() bool {
	return r.config.GetBoolOrTrue("db.mongo.transactions")
}

// redactURL drops the password from a connection string before it is logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "mongodb://<unparsable>"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}
