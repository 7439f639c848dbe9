package model

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a directory entry. PINs are stored and compared in plain
// text; the directory is the only place the pin field ever lives.
type User struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty"`
	Username string `json:"username" bson:"username" validate:"required,min=2,max=50"`
	PIN      string `json:"pin" bson:"pin" validate:"required,pin"`
	Role     Role   `json:"role" bson:"role" validate:"required,oneof=admin user"`
}

// UserUpdate carries a partial edit; empty fields are left untouched.
type UserUpdate struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	PIN      string `json:"pin,omitempty" validate:"omitempty,pin"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
}

// Projection returns the non-secret view of the user that sessions and
// API responses carry.
func (u *User) Projection() SessionUser {
	return SessionUser{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}
