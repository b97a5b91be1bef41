package models

import "time"

// RSVPStatus is a guest's attendance answer.
type RSVPStatus string

const (
	RSVPAttending    RSVPStatus = "attending"
	RSVPNotAttending RSVPStatus = "not_attending"
	RSVPMaybe        RSVPStatus = "maybe"
)

// Valid reports whether s is one of the known answers.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPAttending, RSVPNotAttending, RSVPMaybe:
		return true
	}
	return false
}

// RSVP is a guest's attendance record, one per user.
type RSVP struct {
	UserID       string
	Status       RSVPStatus
	GuestCount   int
	DietaryNotes string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GuestRSVP is an RSVP joined with the guest's display name.
type GuestRSVP struct {
	RSVP
	Guest string
}

// RSVPStats summarises attendance.
type RSVPStats struct {
	Attending    int
	NotAttending int
	Maybe        int
	TotalGuests  int
}
