package models

import "gorm.io/gorm"

// ChatRoom is the conversation boundary between users. Direct chats
// always have exactly two members, but membership lives in its own
// table so group rooms remain possible later.
type ChatRoom struct {
	gorm.Model
	Name string `gorm:"size:255;not null"`

	// PairKey is "min:max" of the two member ids for direct rooms.
	// The unique index is what guarantees at most one room per
	// unordered pair even under concurrent creation. Nil for future
	// group rooms.
	PairKey *string `gorm:"size:64;uniqueIndex"`
}

// RoomMember links a user to a room and authorizes message append.
// Rows are created together with the room and never change afterwards.
type RoomMember struct {
	RoomID uint `gorm:"primaryKey"`
	UserID uint `gorm:"primaryKey"`

	Room ChatRoom `gorm:"foreignKey:RoomID;references:ID;constraint:OnDelete:CASCADE;"`
	User User     `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;"`
}
