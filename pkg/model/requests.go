package model

// CheckInRequest is the body of a check-in call; the responsible user
// comes from the session, never from the body.
type CheckInRequest struct {
	People int `json:"people" validate:"required,min=1,max=200"`
}

// ReservationRequest carries the details of a whole-space hold.
// EndTime is free text shown to other users as-is.
type ReservationRequest struct {
	Reason       string `json:"reason" validate:"required,min=2,max=200"`
	ContactPhone string `json:"contact_phone" validate:"required,min=3,max=20"`
	EndTime      string `json:"end_time" validate:"required,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
	PIN      string `json:"pin" validate:"required,pin"`
}
