package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// DateLayout is the day-granularity format attendance dates are stored in,
// always in server-local time. String comparison on this layout preserves
// chronological order, so range filters work directly on the stored value.
const DateLayout = "2006-01-02"

type Attendance struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	StudentID primitive.ObjectID `json:"student_id" bson:"student_id,omitempty"`
	Subject   string             `json:"subject" bson:"subject,omitempty"`
	Date      string             `json:"date" bson:"date,omitempty"`
	Status    string             `json:"status" bson:"status,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at,omitempty"`
}

type AttendanceWithStudent struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	StudentID    primitive.ObjectID `json:"student_id" bson:"student_id"`
	Subject      string             `json:"subject" bson:"subject"`
	Date         string             `json:"date" bson:"date"`
	Status       string             `json:"status" bson:"status"`
	StudentName  string             `json:"student_name" bson:"student_name"`
	StudentEmail string             `json:"student_email" bson:"student_email"`
}

// AttendanceFilter narrows ledger queries. Zero values mean "no filter";
// From/To are inclusive DateLayout day bounds.
type AttendanceFilter struct {
	Subject string
	From    string
	To      string
}

// SubjectSummary is a student's own per-subject attendance percentage.
type SubjectSummary struct {
	Subject    string `json:"subject"`
	Percentage int    `json:"percentage"`
}

// LiveEvent is the denormalized snapshot broadcast to dashboards after a
// successful mark. It is never persisted.
type LiveEvent struct {
	StudentName string `json:"studentName"`
	Subject     string `json:"subject"`
	Status      string `json:"status"`
	Time        string `json:"time"`
}
