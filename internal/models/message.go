package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is one chat message inside a room. The log is append-only;
// the only mutation is the false→true flip of IsRead when the
// recipient opens the room.
type Message struct {
	gorm.Model
	RoomID   uint      `gorm:"not null;index"`
	SenderID uint      `gorm:"not null;index"`
	Body     string    `gorm:"not null"`
	SentAt   time.Time `gorm:"not null;index"`
	IsRead   bool      `gorm:"not null;default:false"`

	Sender User `gorm:"foreignKey:SenderID"`
}
