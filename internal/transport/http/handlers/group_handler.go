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

type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateCreateGroup(input.Name, input.Members); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	group, err := h.groupService.Create(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoOtherMembers):
			writeError(w, http.StatusBadRequest, "NO_OTHER_MEMBERS", "Group needs at least one member besides you")
		case errors.Is(err, service.ErrMembersNotFound):
			writeError(w, http.StatusBadRequest, "MEMBERS_NOT_FOUND", "One or more members not found")
		default:
			log.Printf("ERROR create group: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}

	group, err := h.groupService.Get(r.Context(), userID, groupID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		case errors.Is(err, service.ErrNotGroupMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this group")
		default:
			log.Printf("ERROR get group: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}

	var input struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateGroupMessage(input.Text); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.groupService.PostMessage(r.Context(), userID, groupID, input.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		case errors.Is(err, service.ErrNotGroupMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this group")
		default:
			log.Printf("ERROR post group message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *GroupHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}

	var input struct {
		Members []uuid.UUID `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateAddMembers(input.Members); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	group, err := h.groupService.AddMembers(r.Context(), userID, groupID, input.Members)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		case errors.Is(err, service.ErrNotGroupAdmin):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only a group admin can add members")
		case errors.Is(err, service.ErrMembersNotFound):
			writeError(w, http.StatusBadRequest, "MEMBERS_NOT_FOUND", "One or more members not found")
		case errors.Is(err, service.ErrAlreadyMembers):
			writeError(w, http.StatusBadRequest, "ALREADY_MEMBERS", "All requested users are already members")
		default:
			log.Printf("ERROR add group members: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return
	}
	targetID, err := uuid.Parse(r.PathValue("uid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), userID, groupID, targetID); err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		case errors.Is(err, service.ErrMemberNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User is not in this group")
		case errors.Is(err, service.ErrNotGroupMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this group")
		case errors.Is(err, service.ErrNotGroupAdmin):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only a group admin can remove other members")
		case errors.Is(err, service.ErrCannotRemoveCreator):
			writeError(w, http.StatusBadRequest, "CANNOT_REMOVE_CREATOR", "The group creator cannot be removed")
		case errors.Is(err, service.ErrLastAdmin):
			writeError(w, http.StatusBadRequest, "LAST_ADMIN", "Cannot remove the only admin of the group")
		default:
			log.Printf("ERROR remove group member: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GroupHandler) ListMyGroups(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	groups, err := h.groupService.ListMyGroups(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list my groups: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, groups)
}
