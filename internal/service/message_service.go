package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/crypto"
	"github.com/shikkha/messaging/internal/domain"
	"github.com/shikkha/messaging/internal/repository"
)

var (
	ErrCannotMessageSelf = errors.New("cannot send a message to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
)

// Notifier broadcasts real-time events to connected clients. Delivery
// is best-effort; REST polling remains the source of truth.
type Notifier interface {
	NotifyDirectMessage(msg *domain.DirectMessage)
	NotifyGroupMessage(msg *domain.GroupMessage)
	NotifyGroupMembersAdded(groupID uuid.UUID, userIDs []uuid.UUID)
}

type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	codec       *crypto.Codec
	notifier    Notifier
}

// NewMessageService creates the direct-message service. codec may be
// nil, in which case message text is stored as plaintext.
func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, codec *crypto.Codec) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		codec:       codec,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Send persists a direct message. The sender identity comes exclusively
// from the verified credential, never from the request body.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID uuid.UUID, text string) (*domain.DirectMessage, error) {
	if senderID == recipientID {
		return nil, ErrCannotMessageSelf
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	msg := &domain.DirectMessage{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   time.Now(),
	}
	if s.codec != nil {
		ciphertext, nonce, err := s.codec.Encrypt(text)
		if err != nil {
			return nil, fmt.Errorf("encrypting message: %w", err)
		}
		msg.Text = ""
		msg.Ciphertext = ciphertext
		msg.Nonce = nonce
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	s.decodeDirect(full)

	if s.notifier != nil {
		s.notifier.NotifyDirectMessage(full)
	}

	return full, nil
}

// GetConversation returns the full history between the caller and one
// counterpart, ascending by timestamp, and advances the caller's read
// marker. History is symmetric in its arguments.
func (s *MessageService) GetConversation(ctx context.Context, userID, otherUserID uuid.UUID) ([]domain.DirectMessage, error) {
	messages, err := s.messageRepo.ListConversation(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		s.decodeDirect(&messages[i])
	}
	if messages == nil {
		messages = []domain.DirectMessage{}
	}

	if err := s.messageRepo.UpsertReadMarker(ctx, userID, otherUserID, time.Now()); err != nil {
		return nil, fmt.Errorf("updating read marker: %w", err)
	}

	return messages, nil
}

// Inbox returns the caller's distinct conversations with last-message
// preview and unread count, newest first.
func (s *MessageService) Inbox(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.messageRepo.ListInbox(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread, err := s.messageRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range convs {
		s.decodeDirect(&convs[i].LastMessage)
		convs[i].UnreadCount = unread[convs[i].OtherUserID]
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// decodeDirect restores plaintext on an encrypted message. A failed
// authentication marks the single message unreadable instead of
// failing the whole fetch.
func (s *MessageService) decodeDirect(msg *domain.DirectMessage) {
	if s.codec == nil || len(msg.Ciphertext) == 0 {
		return
	}
	text, err := s.codec.Decrypt(msg.Ciphertext, msg.Nonce)
	if err != nil {
		msg.Text = ""
		msg.Unreadable = true
		return
	}
	msg.Text = text
}
