package model

import "time"

// SessionUser is the pin-stripped projection of a directory entry.
type SessionUser struct {
	ID       string `json:"id" bson:"user_id"`
	Username string `json:"username" bson:"username"`
	Role     Role   `json:"role" bson:"role"`
}

func (s SessionUser) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Session binds an opaque token to a user projection. The token is the
// document id so lookup and revocation are single-key operations.
type Session struct {
	Token     string      `json:"token" bson:"_id"`
	User      SessionUser `json:"user" bson:",inline"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}
