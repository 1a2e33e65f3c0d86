package model

import "time"

// ClientFlag is a per-client key/value entry, the server side of the browser's local storage.
type ClientFlag struct {
	ClientID  string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"size:256;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
