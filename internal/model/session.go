package model

import "time"

// LiveSession is the metadata of an active room: the short code students
// type in, plus the course it was opened against. The member list and
// question log live in the in-memory registry, not here.
type LiveSession struct {
	Code      string    `json:"code"`
	CourseID  string    `json:"courseId"`
	Phrase    string    `json:"phrase"`
	CreatedAt time.Time `json:"createdAt"`
}
