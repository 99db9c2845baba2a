package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB implements Store using a MongoDB collection
type MongoDB struct {
	client     *mongo.Client
	db         *mongo.Database
	embeddings *mongo.Collection
}

// embeddingDoc is the MongoDB document structure
type embeddingDoc struct {
	ID        string    `bson:"_id"`
	Model     string    `bson:"model"`
	Hash      string    `bson:"hash"`
	Embedding []float32 `bson:"embedding"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoDB creates a new MongoDB storage
func NewMongoDB(ctx context.Context, uri, database string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	m := &MongoDB{
		client:     client,
		db:         db,
		embeddings: db.Collection("profile_embeddings"),
	}

	if err := m.initIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return m, nil
}

func (m *MongoDB) initIndexes(ctx context.Context) error {
	_, err := m.embeddings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "model", Value: 1}, {Key: "hash", Value: 1}},
	})
	return err
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func docID(model, key string) string {
	return model + ":" + key
}

func (m *MongoDB) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	filter := bson.D{
		{Key: "model", Value: model},
		{Key: "hash", Value: bson.D{{Key: "$in", Value: keys}}},
	}

	cursor, err := m.embeddings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string][]float32, len(keys))
	for cursor.Next(ctx) {
		var doc embeddingDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.Hash] = doc.Embedding
	}

	return out, cursor.Err()
}

func (m *MongoDB) Put(ctx context.Context, model string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		doc := embeddingDoc{
			ID:        docID(model, e.Key),
			Model:     model,
			Hash:      e.Key,
			Embedding: e.Embedding,
			CreatedAt: now,
		}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: doc.ID}}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	if _, err := m.embeddings.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert embeddings: %w", err)
	}
	return nil
}
