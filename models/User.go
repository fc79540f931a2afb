package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleStaff = "staff"
)

type User struct {
	gorm.Model
	Username  string `json:"username" gorm:"uniqueIndex;size:150"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" gorm:"uniqueIndex"`
	Password  string `json:"-"`
	AvatarURL string `json:"avatarURL"`
	Role      string `json:"role" gorm:"type:varchar(20);default:user;index"` // user, staff
}

// DisplayName returns "First Last" and falls back to the username
// when both name fields are empty.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

// IsStaff reports whether the user may manage rides they do not own.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}
