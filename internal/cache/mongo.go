package cache

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yhun1542/emarknews-stable/internal/logger"
)

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// MongoStore keeps cache entries in a Mongo collection so multiple instances
// share one cache. Entries are reconstructible artifacts; concurrent writers
// to the same key are last-write-wins.
type MongoStore struct {
	col *mongo.Collection
}

// ConnectMongo dials Mongo and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return client, nil
}

func NewMongoStore(db *mongo.Database) (*MongoStore, error) {
	col := db.Collection("cache_entries")

	// Expire documents at expiresAt; Mongo's TTL monitor lags by up to a
	// minute, so Get still checks expiry itself.
	_, err := col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, err
	}

	return &MongoStore{col: col}, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var entry mongoEntry
	err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	entry := mongoEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}

	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
}
