package repositories

import (
	"context"
	"fmt"
	"time"

	"hightech/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDocumentStore is a MongoDB implementation of DocumentStore. Every logical collection
// maps to a MongoDB collection of the same name. New documents get string UUIDs as _id;
// documents written by other clients with ObjectID keys are addressed by their hex form.
type MongoDocumentStore struct {
	client *mongo.Client
	db     *mongo.Database
	hub    *watchHub
}

// NewMongoDocumentStore connects to MongoDB and verifies the connection.
func NewMongoDocumentStore(ctx context.Context, uri, database string, poll time.Duration) (*MongoDocumentStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDocumentStore{
		client: client,
		db:     client.Database(database),
		hub:    newWatchHub(poll),
	}, nil
}

// Watch starts a live query over one collection.
func (r *MongoDocumentStore) Watch(query models.DocumentQuery, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if query.Collection == "" {
		return nil, fmt.Errorf("watch requires a collection")
	}
	return r.hub.watch(query, r.fetch, onSnapshot, onError), nil
}

func (r *MongoDocumentStore) fetch(ctx context.Context, q models.DocumentQuery) ([]models.Document, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := r.db.Collection(q.Collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", q.Collection, err)
	}

	docs := make([]models.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromBSON(m))
	}
	return docs, nil
}

// documentID renders an _id as the string the rest of the app addresses it by.
func documentID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// idFilter matches id as a string key, or as an ObjectID when id is a valid hex ObjectID.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func fromBSON(m bson.M) models.Document {
	id := documentID(m["_id"])
	data := make(map[string]interface{}, len(m))
	for k, v := range m {
		if k == "_id" {
			continue
		}
		data[k] = v
	}
	return models.Document{ID: id, Data: data}
}

// Get retrieves a single document by its ID.
func (r *MongoDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	var m bson.M
	err := r.db.Collection(collection).FindOne(ctx, idFilter(id)).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, notFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	doc := fromBSON(m)
	return &doc, nil
}

// Insert creates a new document and returns its generated ID.
func (r *MongoDocumentStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()
	doc := bson.M{"_id": id}
	for k, v := range copyData(data) {
		doc[k] = v
	}

	if _, err := r.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}

	r.hub.publish(collection)
	return id, nil
}

// Update sets the given fields on an existing document.
func (r *MongoDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	res, err := r.db.Collection(collection).UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M(copyData(fields))})
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return notFound(collection, id)
	}

	r.hub.publish(collection)
	return nil
}

// Delete deletes a document by its ID.
func (r *MongoDocumentStore) Delete(ctx context.Context, collection, id string) error {
	res, err := r.db.Collection(collection).DeleteOne(ctx, idFilter(id))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return notFound(collection, id)
	}

	r.hub.publish(collection)
	return nil
}

// Close stops every live query and disconnects the client.
func (r *MongoDocumentStore) Close() error {
	r.hub.closeAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ DocumentStore = (*MongoDocumentStore)(nil)
