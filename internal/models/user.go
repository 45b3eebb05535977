package models

import "time"

type PhoneNumber struct {
	Code   string `bson:"code" json:"code"`
	Number string `bson:"number" json:"number"`
}

type User struct {
	ID           string      `bson:"_id,omitempty" json:"id"`
	Name         string      `bson:"name" json:"name"`
	Email        string      `bson:"email" json:"email"`
	PhoneNumber  PhoneNumber `bson:"phone_number" json:"phoneNumber"`
	PasswordHash string      `bson:"password_hash" json:"-"`
	ProfileImage string      `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
	CreatedAt    time.Time   `bson:"created_at" json:"createdAt"`
}
