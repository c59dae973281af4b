package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/moonjewelry/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Audit actions recorded by the storefront.
const (
	AuditProfileUpdated = "profile_updated"
	AuditPaymentFailed  = "payment_failed"
	AuditOrderPlaced    = "order_placed"
	AuditOrderLost      = "order_persist_failed"
	AuditOrderStatus    = "order_status_changed"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLog is one entry of the storefront audit trail.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entity_id"`
	UserID    uint      `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AuditFilter selects audit entries, newest first. Zero fields do not filter.
type AuditFilter struct {
	EntityID string
	Action   string
	UserID   uint
	Since    time.Time
	Limit    int64
}

func (f AuditFilter) query() bson.M {
	q := bson.M{}
	if f.EntityID != "" {
		q["entity_id"] = f.EntityID
	}
	if f.Action != "" {
		q["action"] = f.Action
	}
	if f.UserID != 0 {
		q["user_id"] = f.UserID
	}
	if !f.Since.IsZero() {
		q["created_at"] = bson.M{"$gte": f.Since}
	}
	return q
}

func (f AuditFilter) limit() int64 {
	switch {
	case f.Limit <= 0:
		return defaultAuditLimit
	case f.Limit > maxAuditLimit:
		return maxAuditLimit
	}
	return f.Limit
}

// auditIndexes back the lookups the back office makes: per order, per
// action and per user, each newest first.
var auditIndexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}}},
	{Keys: bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}}},
	{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
}

// MongoRepository stores the audit trail in a single collection.
type MongoRepository struct {
	client *mongo.Client
	audit  *mongo.Collection
}

// NewMongoRepository connects, verifies the server answers and makes sure
// the audit indexes exist.
func NewMongoRepository(ctx context.Context, cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	m := &MongoRepository{
		client: client,
		audit:  client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := m.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes is idempotent.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := m.audit.Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := m.audit.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log %s: %w", entry.Action, err)
	}
	return nil
}

func (m *MongoRepository) FindAuditLogs(ctx context.Context, filter AuditFilter) ([]*AuditLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(filter.limit())

	cursor, err := m.audit.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []*AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode audit logs: %w", err)
	}
	return logs, nil
}
