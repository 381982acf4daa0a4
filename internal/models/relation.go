package models

import "time"

// RelationStatus defines the moderation state between two users.
type RelationStatus string

const (
	// StatusPending means FromUser has opened a conversation toward
	// ToUser that ToUser has not yet accepted.
	StatusPending RelationStatus = "pending"

	// StatusAccepted means ToUser accepted the conversation.
	StatusAccepted RelationStatus = "accepted"

	// StatusSpammed means FromUser marked ToUser as spam. It blocks
	// ToUser from opening conversations toward FromUser; the reverse
	// direction is unaffected.
	StatusSpammed RelationStatus = "spammed"
)

// Relation represents the directional relationship between two users.
// The primary key is a composite of (FromUserID, ToUserID) to ensure uniqueness.
type Relation struct {
	FromUserID uint           `gorm:"primaryKey"`
	ToUserID   uint           `gorm:"primaryKey"`
	Status     RelationStatus `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	FromUser User `gorm:"foreignKey:FromUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ToUser   User `gorm:"foreignKey:ToUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
