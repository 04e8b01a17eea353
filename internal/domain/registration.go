package domain

import "time"

// Registration holds sign-up data until the owner proves control of the email
// address. At most one live registration exists per email.
type Registration struct {
	RegistrationID string    `json:"id" dynamodbav:"registration_id"`
	FirstName      string    `json:"firstName" dynamodbav:"first_name"`
	LastName       string    `json:"lastName" dynamodbav:"last_name"`
	Email          string    `json:"email" dynamodbav:"email"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"created_at,unixtime"`
}
