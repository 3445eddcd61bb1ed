package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

type Profile struct {
	UserID      string `json:"user_id" bson:"user_id" validate:"min=4"`
	FullName    string `json:"full_name" bson:"full_name" validate:"required"`
	Email       string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number,omitempty" bson:"phone_number,omitempty" validate:"omitempty,len=10,number"`
	ImageURL    string `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Gender      Gender `json:"gender,omitempty" bson:"gender,omitempty" validate:"omitempty,oneof=Male Female"`
}

type Account struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash []byte    `json:"-" bson:"password_hash"`
	Profile      Profile   `json:"profile" bson:"profile"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
