// Package chat implements the conversation-admission and message core:
// it decides whether two users may share a room, lazily creates the
// room exactly once per pair, tracks read state and fans newly
// persisted messages out through the hub.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chatline/backend/internal/hub"
	"chatline/backend/internal/models"
	"chatline/backend/pkg/apperrors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Decision is the answer a user gives to an incoming conversation request.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// EventNewMessage is the event type broadcast for every stored message.
const EventNewMessage = "new_message"

// MessageEvent is the hub payload for a newly stored message.
type MessageEvent struct {
	ID       uint      `json:"id"`
	RoomID   uint      `json:"room_id"`
	SenderID uint      `json:"sender_id"`
	Username string    `json:"username"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// Service coordinates the relation, room and message tables. It owns no
// state of its own; both the database handle and the hub are injected.
type Service struct {
	db  *gorm.DB
	hub *hub.Hub
}

func NewService(db *gorm.DB, h *hub.Hub) *Service {
	return &Service{db: db, hub: h}
}

// pairKey is the canonical identity of an unordered user pair.
func pairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// RequestConversation resolves or creates the single direct room
// between requester and target. It reports whether the room was newly
// created. Repeat calls, from either side of the pair, return the same
// room id without further side effects.
func (s *Service) RequestConversation(requesterID, targetID uint) (uint, bool, error) {
	if requesterID == targetID {
		return 0, false, apperrors.ErrSelfConversation
	}

	var target models.User
	if err := s.db.First(&target, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, apperrors.ErrInvalidTarget
		}
		return 0, false, apperrors.ErrStore(err)
	}

	// Blocking is directional: only the target having spammed the
	// requester denies admission.
	var blocked int64
	err := s.db.Model(&models.Relation{}).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?", targetID, requesterID, models.StatusSpammed).
		Count(&blocked).Error
	if err != nil {
		return 0, false, apperrors.ErrStore(err)
	}
	if blocked > 0 {
		return 0, false, apperrors.ErrBlocked
	}

	if roomID, ok, err := s.findPairRoom(requesterID, targetID); err != nil {
		return 0, false, err
	} else if ok {
		return roomID, false, nil
	}

	roomID, err := s.createPairRoom(requesterID, targetID)
	if err == nil {
		return roomID, true, nil
	}

	// The unique pair key makes a concurrent create fail here rather
	// than produce a second room. Resolve the loser of the race to the
	// winner's room before giving up.
	if roomID, ok, lookupErr := s.findPairRoom(requesterID, targetID); lookupErr == nil && ok {
		return roomID, false, nil
	}
	return 0, false, apperrors.ErrAdmissionFailed(err)
}

// findPairRoom looks up the direct room whose membership set is exactly
// {a, b}. Any room merely containing one of them does not qualify.
func (s *Service) findPairRoom(a, b uint) (uint, bool, error) {
	key := pairKey(a, b)
	var room models.ChatRoom
	err := s.db.Where("pair_key = ?", key).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.ErrStore(err)
	}
	return room.ID, true, nil
}

// createPairRoom creates the room, both membership rows and the pending
// relation in one transaction. A room without both memberships is never
// observable.
func (s *Service) createPairRoom(requesterID, targetID uint) (uint, error) {
	key := pairKey(requesterID, targetID)
	var roomID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		room := models.ChatRoom{Name: "Direct chat", PairKey: &key}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		if err := tx.Model(&room).Update("name", fmt.Sprintf("Chat Room %d", room.ID)).Error; err != nil {
			return err
		}

		members := []models.RoomMember{
			{RoomID: room.ID, UserID: requesterID},
			{RoomID: room.ID, UserID: targetID},
		}
		if err := tx.Create(&members).Error; err != nil {
			return err
		}

		relation := models.Relation{
			FromUserID: requesterID,
			ToUserID:   targetID,
			Status:     models.StatusPending,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&relation).Error; err != nil {
			return err
		}

		roomID = room.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return roomID, nil
}

// RespondToRequest handles the target side of a conversation request.
// Accepting ensures the shared room exists and marks the incoming
// relation accepted; declining records the other user as spammed, which
// blocks future requests from them. Declining keeps existing history.
func (s *Service) RespondToRequest(currentID, otherID uint, decision Decision) (uint, error) {
	if currentID == otherID {
		return 0, apperrors.ErrSelfConversation
	}

	var other models.User
	if err := s.db.First(&other, otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrInvalidTarget
		}
		return 0, apperrors.ErrStore(err)
	}

	switch decision {
	case DecisionAccept:
		relation := models.Relation{
			FromUserID: otherID,
			ToUserID:   currentID,
			Status:     models.StatusAccepted,
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": models.StatusAccepted}),
		}).Create(&relation).Error
		if err != nil {
			return 0, apperrors.ErrStore(err)
		}

		if roomID, ok, err := s.findPairRoom(currentID, otherID); err != nil {
			return 0, err
		} else if ok {
			return roomID, nil
		}
		roomID, err := s.createPairRoom(otherID, currentID)
		if err != nil {
			if roomID, ok, lookupErr := s.findPairRoom(currentID, otherID); lookupErr == nil && ok {
				return roomID, nil
			}
			return 0, apperrors.ErrAdmissionFailed(err)
		}
		return roomID, nil

	case DecisionDecline:
		relation := models.Relation{
			FromUserID: currentID,
			ToUserID:   otherID,
			Status:     models.StatusSpammed,
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": models.StatusSpammed}),
		}).Create(&relation).Error
		if err != nil {
			return 0, apperrors.ErrStore(err)
		}
		return 0, nil

	default:
		return 0, apperrors.Validation("decision must be accept or decline")
	}
}

// ListPendingRequests returns the users waiting for userID's answer:
// incoming pending relations, minus anyone userID already spammed.
func (s *Service) ListPendingRequests(userID uint) ([]models.User, error) {
	spammed := s.db.Model(&models.Relation{}).
		Select("to_user_id").
		Where("from_user_id = ? AND status = ?", userID, models.StatusSpammed)

	var users []models.User
	err := s.db.
		Joins("JOIN relations ON relations.from_user_id = users.id").
		Where("relations.to_user_id = ? AND relations.status = ?", userID, models.StatusPending).
		Where("users.id NOT IN (?)", spammed).
		Find(&users).Error
	if err != nil {
		return nil, apperrors.ErrStore(err)
	}
	return users, nil
}

// ListSpam returns the users userID has marked as spam.
func (s *Service) ListSpam(userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Joins("JOIN relations ON relations.to_user_id = users.id").
		Where("relations.from_user_id = ? AND relations.status = ?", userID, models.StatusSpammed).
		Find(&users).Error
	if err != nil {
		return nil, apperrors.ErrStore(err)
	}
	return users, nil
}

// DirectChats returns the distinct counterparties of every room userID
// belongs to, for rendering the conversation list.
func (s *Service) DirectChats(userID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.Distinct("users.*").
		Joins("JOIN room_members other ON other.user_id = users.id").
		Joins("JOIN room_members mine ON mine.room_id = other.room_id").
		Where("mine.user_id = ? AND users.id <> ?", userID, userID).
		Find(&users).Error
	if err != nil {
		return nil, apperrors.ErrStore(err)
	}
	return users, nil
}

// AppendMessage stores a message and, only after the insert succeeded,
// broadcasts it to the room's subscribers.
func (s *Service) AppendMessage(roomID, senderID uint, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.ErrEmptyBody
	}

	var room models.ChatRoom
	if err := s.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.ErrStore(err)
	}

	member, err := s.IsMember(roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrNotAMember
	}

	var sender models.User
	if err := s.db.First(&sender, senderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrStore(err)
	}

	message := models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Body:     body,
		SentAt:   time.Now(),
		IsRead:   false,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, apperrors.ErrStore(err)
	}
	message.Sender = sender

	// Persist-then-publish: the broadcast never precedes the insert,
	// and a failed insert never reaches the hub.
	s.hub.Broadcast(roomID, hub.Event{
		Type: EventNewMessage,
		Payload: MessageEvent{
			ID:       message.ID,
			RoomID:   message.RoomID,
			SenderID: message.SenderID,
			Username: sender.Username,
			Body:     message.Body,
			SentAt:   message.SentAt,
		},
	})

	return &message, nil
}

// FetchHistory returns the full message log of a room in send order,
// ties broken by message id, with senders preloaded.
func (s *Service) FetchHistory(roomID uint) ([]models.Message, error) {
	var room models.ChatRoom
	if err := s.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.ErrStore(err)
	}

	var messages []models.Message
	err := s.db.Preload("Sender").
		Where("room_id = ?", roomID).
		Order("sent_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.ErrStore(err)
	}
	return messages, nil
}

// MarkRead flags every message in the room not sent by the reader as
// read. Calling it again is a no-op.
func (s *Service) MarkRead(roomID, readerID uint) error {
	err := s.db.Model(&models.Message{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true).Error
	if err != nil {
		return apperrors.ErrStore(err)
	}
	return nil
}

// UnreadCounts aggregates unread messages across all of the user's
// rooms, grouped by sender, for the per-conversation badges.
func (s *Service) UnreadCounts(userID uint) (map[uint]int64, error) {
	var rows []struct {
		SenderID uint
		Count    int64
	}
	err := s.db.Model(&models.Message{}).
		Select("messages.sender_id AS sender_id, COUNT(*) AS count").
		Joins("JOIN room_members ON room_members.room_id = messages.room_id").
		Where("room_members.user_id = ? AND messages.sender_id <> ? AND messages.is_read = ?", userID, userID, false).
		Group("messages.sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.ErrStore(err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Count
	}
	return counts, nil
}

// RoomMembers lists the users belonging to a room.
func (s *Service) RoomMembers(roomID uint) ([]models.User, error) {
	var room models.ChatRoom
	if err := s.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.ErrStore(err)
	}

	var users []models.User
	err := s.db.
		Joins("JOIN room_members ON room_members.user_id = users.id").
		Where("room_members.room_id = ?", roomID).
		Find(&users).Error
	if err != nil {
		return nil, apperrors.ErrStore(err)
	}
	return users, nil
}

// IsMember reports whether userID belongs to roomID.
func (s *Service) IsMember(roomID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.ErrStore(err)
	}
	return count > 0, nil
}
