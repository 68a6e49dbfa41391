package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"classpulse/internal/model"
)

type CourseRepo interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]*model.Course, error)
}

type courseRepo struct {
	collection *mongo.Collection
}

func NewCourseRepo(db *mongo.Database) CourseRepo {
	return &courseRepo{
		collection: db.Collection("courses"),
	}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	_, err := r.collection.InsertOne(ctx, course)
	return err
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

// ListByInstructor returns the instructor's courses; an empty id lists
// the whole catalog.
func (r *courseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]*model.Course, error) {
	filter := bson.M{}
	if instructorID != "" {
		filter["instructorId"] = instructorID
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var courses []*model.Course
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}
