package models

import "gorm.io/gorm"

// PasswordReset stores an outstanding reset token for an email address.
type PasswordReset struct {
	gorm.Model
	Email string `gorm:"size:255;not null;index"`
	Token string `gorm:"size:255;not null;uniqueIndex"`
}
