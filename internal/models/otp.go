package models

import "time"

// Purpose distinguishes a signup challenge from a login challenge.
type Purpose string

const (
	PurposeSignup Purpose = "SIGNUP"
	PurposeLogin  Purpose = "LOGIN"
)

// EmbeddedOTP is the login challenge attached to an existing identity.
type EmbeddedOTP struct {
	CodeHash  string    `json:"code_hash" bson:"code_hash" dynamodbav:"code_hash"`
	Purpose   Purpose   `json:"purpose" bson:"purpose" dynamodbav:"purpose"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at" dynamodbav:"expires_at"`
}

// PendingVerification stages a signup profile until its code is verified.
// At most one exists per kind and phone; a newer one replaces the older.
type PendingVerification struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Kind      Kind      `json:"kind" dynamodbav:"kind"`
	Phone     string    `json:"phone" dynamodbav:"phone"`
	Profile   Profile   `json:"profile" dynamodbav:"profile"`
	CodeHash  string    `json:"code_hash" dynamodbav:"code_hash"`
	Purpose   Purpose   `json:"purpose" dynamodbav:"purpose"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}
