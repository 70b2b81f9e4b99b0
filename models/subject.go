package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Subject struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Code      string             `bson:"code,omitempty" json:"code,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type SubjectCreatePayload struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Code string `json:"code" validate:"omitempty,max=20"`
}

type SubjectUpdatePayload struct {
	Name string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Code string `json:"code,omitempty" validate:"omitempty,max=20"`
}
