package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rexa/newscrawler/internal/news"
)

// MongoStore keeps records in a MongoDB collection. The timestamp is stored
// both as a BSON date and as the fixed-width string used by the other sinks.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
	now        func() time.Time
}

type mongoRecord struct {
	Record `bson:",inline"`
	TSText string `bson:"timestamp_text"`
}

func NewMongo(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	m := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "storage", "backend", "mongo"),
		now:        time.Now,
	}

	_, err = m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "url", Value: 1}}},
	})
	if err != nil {
		m.logger.Warn("failed to create indexes", "error", err)
	}

	return m, nil
}

func (m *MongoStore) Append(ctx context.Context, item news.Item) error {
	r := NewRecord(item, m.now())
	if _, err := m.collection.InsertOne(ctx, mongoRecord{Record: r, TSText: FormatTimestamp(r.Timestamp)}); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (m *MongoStore) RecentURLs(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	return m.recent(ctx, "url", window, func(v string) string { return v })
}

func (m *MongoStore) RecentTitles(ctx context.Context, window time.Duration) (map[string]struct{}, error) {
	return m.recent(ctx, "title", window, news.NormalizeTitle)
}

func (m *MongoStore) recent(ctx context.Context, field string, window time.Duration, key func(string) string) (map[string]struct{}, error) {
	cutoff := m.now().Add(-window).UTC()

	filter := bson.M{"timestamp": bson.M{"$gte": cutoff}}
	opts := options.Find().SetProjection(bson.M{field: 1, "_id": 0})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find recent %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	out := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		if v, ok := doc[field].(string); ok && v != "" {
			out[key(v)] = struct{}{}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
