package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classpulse/internal/model"
	"classpulse/internal/repository"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "classpulse"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)
	instructorRepo := repository.NewInstructorRepo(db)
	courseRepo := repository.NewCourseRepo(db)
	tagRepo := repository.NewTagRepo(db)

	instructors := []*model.Instructor{
		{ID: "i_john", FirstName: "john", LastName: "doe", Email: "john@ncsu.edu"},
		{ID: "i_jane", FirstName: "jane", LastName: "doe", Email: "jane@ncsu.edu"},
		{ID: "i_sam", FirstName: "sam", LastName: "doe", Email: "sam@ncsu.edu"},
	}
	for _, ins := range instructors {
		if err := instructorRepo.Create(ctx, ins); err != nil {
			log.Fatalf("Failed to seed instructor %s: %v", ins.Email, err)
		}
	}
	log.Printf("Seeded %d instructors", len(instructors))

	courses := []*model.Course{
		{ID: "c_csc100", InstructorID: "i_john", Department: "Comp Sci", Number: "1A", Title: "CSC 100"},
		{ID: "c_py208", InstructorID: "i_jane", Department: "Physics", Number: "2A", Title: "PY 208"},
	}
	for _, course := range courses {
		if err := courseRepo.Create(ctx, course); err != nil {
			log.Fatalf("Failed to seed course %s: %v", course.Title, err)
		}
	}
	log.Printf("Seeded %d courses", len(courses))

	tags := []*model.Tag{
		{CourseID: "c_csc100", Name: "polymorphism"},
		{CourseID: "c_csc100", Name: "OOPS"},
		{CourseID: "c_csc100", Name: "Data Structures"},
		{CourseID: "c_py208", Name: "Electromagnetism"},
		{CourseID: "c_py208", Name: "friction"},
		{CourseID: "c_py208", Name: "force"},
	}
	for _, tag := range tags {
		if err := tagRepo.Create(ctx, tag); err != nil {
			log.Fatalf("Failed to seed tag %s: %v", tag.Name, err)
		}
	}
	log.Printf("Seeded %d tags", len(tags))

	log.Println("Done")
}
