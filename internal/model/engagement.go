package model

import "time"

// EngagementSession is the durable record of a finished live session.
// Written when a room is ended or evicted; room memory is freed after.
type EngagementSession struct {
	ID            string     `json:"id" bson:"_id"`
	Code          string     `json:"code" bson:"code"`
	CourseID      string     `json:"courseId" bson:"courseId"`
	Phrase        string     `json:"phrase" bson:"phrase"`
	MemberPeak    int        `json:"memberPeak" bson:"memberPeak"`
	QuestionCount int        `json:"questionCount" bson:"questionCount"`
	Questions     []Question `json:"questions" bson:"questions"`
	StartedAt     time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt       time.Time  `json:"endedAt" bson:"endedAt"`
}
