package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classpulse/internal/model"
)

type TagRepo interface {
	// Create assigns the next sequential id and inserts the tag.
	Create(ctx context.Context, tag *model.Tag) error
	ListByCourse(ctx context.Context, courseID string) ([]model.Tag, error)
}

type tagRepo struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewTagRepo(db *mongo.Database) TagRepo {
	return &tagRepo{
		collection: db.Collection("tags"),
		counters:   db.Collection("counters"),
	}
}

func (r *tagRepo) Create(ctx context.Context, tag *model.Tag) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	tag.ID = id

	_, err = r.collection.InsertOne(ctx, tag)
	return err
}

func (r *tagRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Tag, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"courseId": courseID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tags []model.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// nextID bumps the tag sequence counter atomically on the server.
func (r *tagRepo) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "tags"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
