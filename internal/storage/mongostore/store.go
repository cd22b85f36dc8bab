// Package mongostore persists documents in MongoDB, one mongo collection per
// registry collection, each document stored as {_id: key, doc: <document>}.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"smp/pkg/platform/sentinel"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string
	Database string
}

// Store implements storage.DocumentStore on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

type record struct {
	ID  string   `bson:"_id"`
	Doc bson.Raw `bson:"doc"`
}

type writeRecord struct {
	ID  string `bson:"_id"`
	Doc bson.D `bson:"doc"`
}

// Open connects and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = "smp"
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func toBSON(doc []byte) (bson.D, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(doc, false, &d); err != nil {
		return nil, fmt.Errorf("convert document to bson: %w", err)
	}
	return d, nil
}

func toJSON(raw bson.Raw) ([]byte, error) {
	doc, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert document to json: %w", err)
	}
	return doc, nil
}

func (s *Store) Insert(ctx context.Context, collection, key string, doc []byte) error {
	raw, err := toBSON(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(collection).InsertOne(ctx, writeRecord{ID: key, Doc: raw})
	if mongo.IsDuplicateKeyError(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, collection, key string, doc []byte) ([]byte, error) {
	raw, err := toBSON(doc)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.Before)
	var prev record
	err = s.db.Collection(collection).
		FindOneAndReplace(ctx, bson.M{"_id": key}, writeRecord{ID: key, Doc: raw}, opts).
		Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("replacing %s/%s: %w", collection, key, err)
	}
	return toJSON(prev.Doc)
}

func (s *Store) Delete(ctx context.Context, collection, key string) (int, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return 0, fmt.Errorf("deleting %s/%s: %w", collection, key, err)
	}
	return int(res.DeletedCount), nil
}

func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var rec record
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, key, err)
	}
	return toJSON(rec.Doc)
}

func (s *Store) List(ctx context.Context, collection string) ([][]byte, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs [][]byte
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", collection, err)
		}
		doc, err := toJSON(rec.Doc)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
