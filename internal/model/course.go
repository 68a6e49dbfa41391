package model

// Course is a catalog entry owned by an instructor
type Course struct {
	ID           string `json:"id" bson:"_id"`
	InstructorID string `json:"instructorId" bson:"instructorId"`
	Department   string `json:"department" bson:"department"`
	Number       string `json:"number" bson:"number"`
	Title        string `json:"title" bson:"title"`
}
