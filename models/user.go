package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Closed role set. Authorization decisions compare against these constants
// only; there is no fourth role.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name,omitempty"`
	Email     string             `json:"email" bson:"email,omitempty"`
	Password  string             `json:"-" bson:"password,omitempty"`
	Role      string             `json:"role" bson:"role,omitempty"`
	ClassName string             `json:"class_name,omitempty" bson:"class_name,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at,omitempty"`
}

type UserRegisterPayload struct {
	Name      string `json:"name" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=50,hasuppercase"`
	Role      string `json:"role" validate:"required,oneof=student teacher admin"`
	ClassName string `json:"class_name" validate:"omitempty,max=50"`
}

type UserLoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordPayload struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=50,hasuppercase"`
}
