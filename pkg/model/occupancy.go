package model

import "time"

// OccupancyDocumentID is the fixed id of the single occupancy
// document. The whole aggregate is read and replaced on every
// mutation, so concurrent writers resolve as last-write-wins.
const OccupancyDocumentID = "local"

type ActivityType string

const (
	ActivityCheckIn          ActivityType = "check-in"
	ActivityCheckOutSingle   ActivityType = "check-out-single"
	ActivityCheckOutGroup    ActivityType = "check-out-group"
	ActivityReservationStart ActivityType = "reservation-start"
	ActivityReservationEnd   ActivityType = "reservation-end"
	ActivitySystemReset      ActivityType = "system-reset"
)

// SystemActor is the user recorded on automated log entries.
const SystemActor = "system"

// CheckInRecord is a group of people that entered together under one
// responsible user.
type CheckInRecord struct {
	ID        string    `json:"id" bson:"id"`
	User      string    `json:"user" bson:"user"`
	People    int       `json:"people" bson:"people"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Reservation is an exclusive hold on the local. EndTime is free text
// supplied by the reserving user, not a validated time boundary.
type Reservation struct {
	Reason       string    `json:"reason" bson:"reason"`
	ContactPhone string    `json:"contact_phone" bson:"contact_phone"`
	EndTime      string    `json:"end_time" bson:"end_time"`
	ReservedAt   time.Time `json:"reserved_at" bson:"reserved_at"`
}

// ActivityEntry is one append-only log line. People, Reason and
// CheckInID are populated per activity type.
type ActivityEntry struct {
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
	Type      ActivityType `json:"type" bson:"type"`
	User      string       `json:"user" bson:"user"`
	People    int          `json:"people,omitempty" bson:"people,omitempty"`
	Reason    string       `json:"reason,omitempty" bson:"reason,omitempty"`
	CheckInID string       `json:"check_in_id,omitempty" bson:"check_in_id,omitempty"`
}

// OccupancyState is the aggregate root. Invariant: a non-nil
// reservation forces CheckIns empty.
type OccupancyState struct {
	ID          string          `json:"-" bson:"_id"`
	CheckIns    []CheckInRecord `json:"check_ins" bson:"check_ins"`
	Reservation *Reservation    `json:"reservation" bson:"reservation"`
	ActivityLog []ActivityEntry `json:"activity_log" bson:"activity_log"`
}

func NewOccupancyState() *OccupancyState {
	return &OccupancyState{
		ID:          OccupancyDocumentID,
		CheckIns:    []CheckInRecord{},
		ActivityLog: []ActivityEntry{},
	}
}

// Count is the number of people currently inside. It is recomputed on
// every read and never stored, so it cannot drift from the ledger.
func (s *OccupancyState) Count() int {
	total := 0
	for _, record := range s.CheckIns {
		total += record.People
	}
	return total
}

func (s *OccupancyState) Reserved() bool {
	return s.Reservation != nil
}

type Mode string

const (
	ModeEmpty    Mode = "empty"
	ModeOccupied Mode = "occupied"
	ModeReserved Mode = "reserved"
)

func (s *OccupancyState) Mode() Mode {
	switch {
	case s.Reservation != nil:
		return ModeReserved
	case len(s.CheckIns) > 0:
		return ModeOccupied
	default:
		return ModeEmpty
	}
}
