package models

import (
	"encoding/json"
	"time"
)

// Token is a session credential issued at login.
type Token struct {
	Token string `json:"token" bson:"token"`
}

// User represents a registered user.
type User struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null" bson:"name"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" bson:"email"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null" bson:"password"` // bcrypt hash
	Age       int       `json:"age" gorm:"default:0" bson:"age"`
	Tokens    []Token   `json:"-" gorm:"serializer:json" bson:"tokens"`
	Avatar    []byte    `json:"-" bson:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// AddToken appends a session token.
func (u *User) AddToken(token string) {
	u.Tokens = append(u.Tokens, Token{Token: token})
}

// RemoveToken drops every occurrence of token, keeping the order of the rest.
func (u *User) RemoveToken(token string) {
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t.Token != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
}

// HasToken reports whether token is one of the user's active sessions.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t.Token == token {
			return true
		}
	}
	return false
}

// ClearTokens revokes every session.
func (u *User) ClearTokens() {
	u.Tokens = []Token{}
}

// UserUpdate is the set of fields a user may change on their own profile.
// Only non-nil fields are applied.
type UserUpdate struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitnil,min=7,max=72,nopassword"`
	Age      *int    `json:"age" validate:"omitnil,gte=0"`
}

// UpdatableFields lists the JSON keys accepted by UserUpdate.
var UpdatableFields = []string{"name", "password", "email", "age"}

// AllowedUpdate reports whether every key of a PATCH body is updatable.
func AllowedUpdate(body map[string]json.RawMessage) bool {
	for key := range body {
		allowed := false
		for _, f := range UpdatableFields {
			if key == f {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// Apply copies the set fields onto u. The password is copied as given;
// hashing is the caller's job.
func (p UserUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
}
