package model

// Question is a submitted title/body pair. TagID stays nil until the
// tagger has classified the body against the owning course's tags.
type Question struct {
	Title string `json:"title" bson:"title"`
	Body  string `json:"question_body" bson:"body"`
	TagID *int64 `json:"tag_id" bson:"tagId,omitempty"`
}
