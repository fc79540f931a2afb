package models

import (
	"time"

	"gorm.io/gorm"
)

// Ride levels.
const (
	LevelEasy     = "EASY"
	LevelTempo    = "TEMPO"
	LevelSportive = "SPORTIVE"
)

// Ride statuses.
const (
	RideStatusOpen     = "OPEN"
	RideStatusClosed   = "CLOSED"
	RideStatusCanceled = "CANCELED"
)

var RideLevels = []string{LevelEasy, LevelTempo, LevelSportive}

type Ride struct {
	gorm.Model
	Title           string    `json:"title" gorm:"size:150"`
	Date            time.Time `json:"date" gorm:"type:date;index"`
	StartTime       string    `json:"startTime" gorm:"size:5"` // HH:MM
	Departure       string    `json:"departure" gorm:"size:150"`
	DistanceKM      float64   `json:"distanceKm" gorm:"type:numeric(6,1)"`
	Level           string    `json:"level" gorm:"type:varchar(10);default:EASY"`
	Notes           string    `json:"notes" gorm:"type:text"`
	MaxParticipants *uint     `json:"maxParticipants"`
	Status          string    `json:"status" gorm:"type:varchar(10);default:OPEN;index"`
	CreatedByID     uint      `json:"createdByID" gorm:"not null;index"`
	CreatedBy       User      `json:"createdBy" gorm:"foreignKey:CreatedByID"`

	Participations []Participation `json:"participations,omitempty" gorm:"foreignKey:RideID"`
}

// StartsAt combines the ride date with its HH:MM start time in local time.
// A malformed start time counts as midnight.
func (r *Ride) StartsAt() time.Time {
	t, err := time.Parse("15:04", r.StartTime)
	if err != nil {
		t = time.Time{}
	}
	return time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
}

// ParticipantCount counts non-canceled participations. Derived on every call,
// nothing is cached.
func (r *Ride) ParticipantCount(db *gorm.DB) int64 {
	var count int64
	db.Model(&Participation{}).
		Where("ride_id = ? AND status <> ?", r.ID, ParticipationStatusCanceled).
		Count(&count)
	return count
}

// CanSignup reports whether a signup (or unsubscribe) is still possible:
// the ride is open, it has not started yet, and the cap is not reached.
func (r *Ride) CanSignup(db *gorm.DB, now time.Time) bool {
	if r.Status != RideStatusOpen {
		return false
	}
	if !now.Before(r.StartsAt()) {
		return false
	}
	if r.MaxParticipants != nil && *r.MaxParticipants > 0 && r.ParticipantCount(db) >= int64(*r.MaxParticipants) {
		return false
	}
	return true
}

// IsOwnedBy reports whether userID created the ride.
func (r *Ride) IsOwnedBy(userID uint) bool {
	return r.CreatedByID == userID
}
