package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind names an end-user identity collection.
type Kind string

const (
	KindStudent Kind = "student"
	KindTrainer Kind = "trainer"
)

// Kinds lists the identity kinds that go through OTP verification.
var Kinds = []Kind{KindStudent, KindTrainer}

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindStudent:
		return KindStudent, nil
	case KindTrainer:
		return KindTrainer, nil
	}
	return "", fmt.Errorf("unknown identity kind %q", s)
}

// Title is the capitalized kind used in user-facing messages.
func (k Kind) Title() string {
	switch k {
	case KindStudent:
		return "Student"
	case KindTrainer:
		return "Trainer"
	}
	return string(k)
}

// Collection is the document collection (and DynamoDB key prefix) for the kind.
func (k Kind) Collection() string {
	return string(k) + "s"
}

// CookieName is the session cookie carrying the kind's credential.
func (k Kind) CookieName() string {
	return string(k) + "_token"
}

// Identity is the durable record of a student or trainer, keyed naturally by phone.
type Identity struct {
	ID         string       `json:"id" bson:"_id" dynamodbav:"id"`
	Kind       Kind         `json:"kind" bson:"kind" dynamodbav:"kind"`
	Phone      string       `json:"phone" bson:"phone" dynamodbav:"phone"`
	Name       string       `json:"name" bson:"name" dynamodbav:"name"`
	Email      string       `json:"email,omitempty" bson:"email,omitempty" dynamodbav:"email,omitempty"`
	Course     string       `json:"course,omitempty" bson:"course,omitempty" dynamodbav:"course,omitempty"`
	Message    string       `json:"message,omitempty" bson:"message,omitempty" dynamodbav:"message,omitempty"`
	Technology string       `json:"technology,omitempty" bson:"technology,omitempty" dynamodbav:"technology,omitempty"`
	Experience string       `json:"experience,omitempty" bson:"experience,omitempty" dynamodbav:"experience,omitempty"`
	OTP        *EmbeddedOTP `json:"-" bson:"otp,omitempty" dynamodbav:"otp,omitempty"`
	CreatedAt  time.Time    `json:"createdAt" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time    `json:"updatedAt" bson:"updated_at" dynamodbav:"updated_at"`
}

// RoleAttribute is the kind-specific field carried in the session credential.
func (i *Identity) RoleAttribute() string {
	if i.Kind == KindTrainer {
		return i.Technology
	}
	return i.Course
}

// Profile holds the caller-supplied fields of an identity.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Course     string `json:"course,omitempty"`
	Message    string `json:"message,omitempty"`
	Technology string `json:"technology,omitempty"`
	Experience string `json:"experience,omitempty"`
}

func (p Profile) Normalize() Profile {
	return Profile{
		Name:       strings.TrimSpace(p.Name),
		Email:      strings.TrimSpace(p.Email),
		Course:     strings.TrimSpace(p.Course),
		Message:    strings.TrimSpace(p.Message),
		Technology: strings.TrimSpace(p.Technology),
		Experience: strings.TrimSpace(p.Experience),
	}
}

// MissingFields returns the required profile fields absent for kind.
func (p Profile) MissingFields(kind Kind) []string {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	switch kind {
	case KindStudent:
		if p.Course == "" {
			missing = append(missing, "course")
		}
	case KindTrainer:
		if p.Email == "" {
			missing = append(missing, "email")
		}
		if p.Technology == "" {
			missing = append(missing, "technology")
		}
		if p.Experience == "" {
			missing = append(missing, "experience")
		}
	}
	return missing
}

// NewIdentity builds an unsaved identity from a verified profile.
func NewIdentity(kind Kind, phone string, p Profile) *Identity {
	return &Identity{
		Kind:       kind,
		Phone:      phone,
		Name:       p.Name,
		Email:      p.Email,
		Course:     p.Course,
		Message:    p.Message,
		Technology: p.Technology,
		Experience: p.Experience,
	}
}

// ProfileUpdate is a partial administrative update; nil fields are left untouched.
// The phone number is not updatable.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Course     *string `json:"course,omitempty"`
	Message    *string `json:"message,omitempty"`
	Technology *string `json:"technology,omitempty"`
	Experience *string `json:"experience,omitempty"`
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Course == nil &&
		u.Message == nil && u.Technology == nil && u.Experience == nil
}

// Apply copies the set fields onto identity.
func (u ProfileUpdate) Apply(identity *Identity) {
	if u.Name != nil {
		identity.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		identity.Email = strings.TrimSpace(*u.Email)
	}
	if u.Course != nil {
		identity.Course = strings.TrimSpace(*u.Course)
	}
	if u.Message != nil {
		identity.Message = strings.TrimSpace(*u.Message)
	}
	if u.Technology != nil {
		identity.Technology = strings.TrimSpace(*u.Technology)
	}
	if u.Experience != nil {
		identity.Experience = strings.TrimSpace(*u.Experience)
	}
}
