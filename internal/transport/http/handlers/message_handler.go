package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/service"
	"github.com/shikkha/messaging/internal/transport/http/middleware"
	"github.com/shikkha/messaging/pkg/validator"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// Send creates a direct message. The sender is the authenticated
// caller; a sender id in the body is ignored.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		RecipientID uuid.UUID `json:"recipient_id"`
		Text        string    `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateSendMessage(input.RecipientID, input.Text); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, input.RecipientID, input.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotMessageSelf):
			writeError(w, http.StatusBadRequest, "CANNOT_MESSAGE_SELF", "Cannot send a message to yourself")
		case errors.Is(err, service.ErrRecipientNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Recipient not found")
		default:
			log.Printf("ERROR send message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// GetConversation returns the caller's full history with one
// counterpart, oldest first.
func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	messages, err := h.messageService.GetConversation(r.Context(), userID, otherID)
	if err != nil {
		log.Printf("ERROR get conversation: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// Inbox returns the caller's conversation summaries, newest first.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.messageService.Inbox(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR inbox: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}
