package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClassSchedule describes when a subject meets. Date is the first occurrence;
// RecurrenceRule, when set, is an RFC 5545 RRULE expanded on demand.
type ClassSchedule struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Subject        string             `json:"subject" bson:"subject"`
	Date           string             `json:"date" bson:"date"`
	StartTime      string             `json:"start_time" bson:"start_time"`
	EndTime        string             `json:"end_time" bson:"end_time"`
	Room           string             `json:"room,omitempty" bson:"room,omitempty"`
	RecurrenceRule string             `json:"recurrence_rule,omitempty" bson:"recurrence_rule,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at,omitempty"`
}

type ClassScheduleCreatePayload struct {
	Subject        string `json:"subject" validate:"required,min=2,max=100"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime      string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string `json:"end_time" validate:"required,datetime=15:04"`
	Room           string `json:"room" validate:"omitempty,max=50"`
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
}

type ClassScheduleUpdatePayload struct {
	StartTime      string `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime        string `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Room           string `json:"room,omitempty" validate:"omitempty,max=50"`
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
}

type Holiday struct {
	Date string `json:"Date"`
	Name string `json:"Name"`
}
