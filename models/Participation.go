package models

import (
	"gorm.io/gorm"
)

// Participation statuses.
const (
	ParticipationStatusSignedUp = "SIGNED_UP"
	ParticipationStatusFinished = "FINISHED"
	ParticipationStatusDNF      = "DNF"
	ParticipationStatusCanceled = "CANCELED"
)

var ParticipationStatuses = []string{
	ParticipationStatusSignedUp,
	ParticipationStatusFinished,
	ParticipationStatusDNF,
	ParticipationStatusCanceled,
}

// Participation is one user's record on one ride. The (ride, user) pair is
// unique at the database level; the signup race relies on that constraint.
type Participation struct {
	gorm.Model
	RideID      uint    `json:"rideID" gorm:"not null;uniqueIndex:idx_ride_user"`
	Ride        Ride    `json:"-" gorm:"foreignKey:RideID"`
	UserID      uint    `json:"userID" gorm:"not null;uniqueIndex:idx_ride_user"`
	User        User    `json:"user" gorm:"foreignKey:UserID"`
	Status      string  `json:"status" gorm:"type:varchar(12);default:SIGNED_UP"`
	KM          float64 `json:"km" gorm:"type:numeric(6,1);default:0"`
	UpdatedByID *uint   `json:"updatedByID"`
	UpdatedBy   *User   `json:"-" gorm:"foreignKey:UpdatedByID"`
}

// Validate enforces the finished-rides rule: a FINISHED row must carry
// a positive km total.
func (p *Participation) Validate() error {
	if p.Status == ParticipationStatusFinished && p.KM <= 0 {
		return ErrFinishedNeedsKM
	}
	return nil
}
