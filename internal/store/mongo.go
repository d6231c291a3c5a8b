package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const documentsCollection = "documents"

// MongoStore keeps one document per room in a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore connects to Mongo, verifies the server is reachable and
// ensures a unique index on room_id.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	c, err := mongo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, nil); err != nil {
		return nil, err
	}

	col := c.Database(dbName).Collection(documentsCollection)
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"room_id": 1},
		Options: options.Index().SetUnique(true),
	})

	return &MongoStore{col: col}, nil
}

func (s *MongoStore) Load(ctx context.Context, roomID string) (*Document, error) {
	var doc Document
	err := s.col.FindOne(ctx, bson.M{"room_id": roomID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) Save(ctx context.Context, roomID, content string, ts time.Time) error {
	doc := Document{RoomID: roomID, Content: content, LastUpdated: ts.UTC()}
	opts := options.Replace().SetUpsert(true)
	_, err := s.col.ReplaceOne(ctx, bson.M{"room_id": roomID}, doc, opts)
	return err
}
