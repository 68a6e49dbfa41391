package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classpulse/internal/model"
)

type EngagementRepo interface {
	Create(ctx context.Context, session *model.EngagementSession) error
	ListByCourse(ctx context.Context, courseID string) ([]*model.EngagementSession, error)
}

type engagementRepo struct {
	collection *mongo.Collection
}

func NewEngagementRepo(db *mongo.Database) EngagementRepo {
	return &engagementRepo{
		collection: db.Collection("engagement_sessions"),
	}
}

func (r *engagementRepo) Create(ctx context.Context, session *model.EngagementSession) error {
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

// ListByCourse returns a course's archived sessions, newest first.
func (r *engagementRepo) ListByCourse(ctx context.Context, courseID string) ([]*model.EngagementSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "endedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"courseId": courseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.EngagementSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
