package model

// Tag is a topic label belonging to a course, used to classify questions.
// IDs are sequential integers so a question can carry a compact tag_id.
type Tag struct {
	ID       int64  `json:"id" bson:"_id"`
	CourseID string `json:"courseId" bson:"courseId"`
	Name     string `json:"name" bson:"name"`
}
