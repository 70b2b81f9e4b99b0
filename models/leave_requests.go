package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

type LeaveRequest struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	StudentID primitive.ObjectID `json:"student_id" bson:"student_id,omitempty"`
	Date      string             `json:"date" bson:"date,omitempty"`
	Reason    string             `json:"reason" bson:"reason,omitempty"`
	Status    string             `json:"status" bson:"status,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at,omitempty"`
}

type LeaveRequestWithStudent struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	StudentID    primitive.ObjectID `json:"student_id" bson:"student_id"`
	Date         string             `json:"date" bson:"date"`
	Reason       string             `json:"reason" bson:"reason"`
	Status       string             `json:"status" bson:"status"`
	StudentName  string             `json:"student_name" bson:"student_name"`
	StudentEmail string             `json:"student_email" bson:"student_email"`
}

type LeaveRequestCreatePayload struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

type LeaveRequestUpdatePayload struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}
