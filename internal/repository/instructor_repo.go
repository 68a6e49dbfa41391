package repository

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"classpulse/internal/model"
)

type InstructorRepo interface {
	Create(ctx context.Context, instructor *model.Instructor) error
	GetByID(ctx context.Context, id string) (*model.Instructor, error)
	ListByNamePrefix(ctx context.Context, prefix string) ([]*model.Instructor, error)
}

type instructorRepo struct {
	collection *mongo.Collection
}

func NewInstructorRepo(db *mongo.Database) InstructorRepo {
	return &instructorRepo{
		collection: db.Collection("instructors"),
	}
}

func (r *instructorRepo) Create(ctx context.Context, instructor *model.Instructor) error {
	_, err := r.collection.InsertOne(ctx, instructor)
	return err
}

func (r *instructorRepo) GetByID(ctx context.Context, id string) (*model.Instructor, error) {
	var instructor model.Instructor
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&instructor)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &instructor, nil
}

// ListByNamePrefix returns instructors whose first name starts with
// prefix; an empty prefix lists everyone.
func (r *instructorRepo) ListByNamePrefix(ctx context.Context, prefix string) ([]*model.Instructor, error) {
	filter := bson.M{}
	if prefix != "" {
		filter["firstName"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var instructors []*model.Instructor
	if err := cursor.All(ctx, &instructors); err != nil {
		return nil, err
	}
	return instructors, nil
}
