package models

import "gorm.io/gorm"

// User represents a registered account.
type User struct {
	gorm.Model
	Username     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Name         string `gorm:"size:255;not null"`
	Surname      string `gorm:"size:255;not null"`
	Note         string
	// AvatarURL is an opaque reference to the stored avatar file
	// (e.g. "/uploads/169321-me.png"). Upload mechanics live in the
	// profile handler; the model only records the URI.
	AvatarURL string `gorm:"size:512"`
}
