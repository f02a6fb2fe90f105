package models

import "time"

// User is a person who has interacted with the bot at least once.
// TelegramID is the stable identity; display fields are mutable and
// refreshed on every interaction. The two funnel flags are only ever
// set by explicit transitions, never by the upsert path.
type User struct {
	ID                 int64
	TelegramID         int64
	Username           string
	FirstName          string
	LastName           string
	IsSubscribed       bool
	HasReceivedContent bool
	CreatedAt          time.Time
	LastActive         time.Time
}

// Identity carries the mutable display attributes taken from an
// incoming update.
type Identity struct {
	Username  string
	FirstName string
	LastName  string
}

func (i Identity) FullName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
