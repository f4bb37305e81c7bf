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
	ErrGroupNotFound       = errors.New("group not found")
	ErrNotGroupMember      = errors.New("user is not a member of this group")
	ErrNotGroupAdmin       = errors.New("only a group admin can perform this action")
	ErrMembersNotFound     = errors.New("one or more members not found")
	ErrAlreadyMembers      = errors.New("all requested users are already members")
	ErrNoOtherMembers      = errors.New("group needs at least one member besides the creator")
	ErrMemberNotFound      = errors.New("user is not in this group")
	ErrCannotRemoveCreator = errors.New("the group creator cannot be removed")
	ErrLastAdmin           = errors.New("cannot remove the only admin of the group")
)

type GroupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	codec     *crypto.Codec
	notifier  Notifier
}

func NewGroupService(groupRepo repository.GroupRepository, userRepo repository.UserRepository, codec *crypto.Codec) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		codec:     codec,
	}
}

func (s *GroupService) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateGroupInput struct {
	Name    string      `json:"name"`
	Members []uuid.UUID `json:"members"`
}

// GroupDetail is a group with its member list and message history.
type GroupDetail struct {
	domain.Group
	Members  []domain.GroupMember  `json:"members"`
	Messages []domain.GroupMessage `json:"messages"`
}

// GroupSummary is a group as it appears in the caller's group list.
type GroupSummary struct {
	domain.Group
	UnreadCount int `json:"unread_count"`
}

// Create makes a new group. The creator is always included in the
// member set and is its initial admin; the provided member ids are
// de-duplicated and must all resolve.
func (s *GroupService) Create(ctx context.Context, creatorID uuid.UUID, input CreateGroupInput) (*GroupDetail, error) {
	memberIDs := dedupe(input.Members, creatorID)
	if len(memberIDs) == 0 {
		return nil, ErrNoOtherMembers
	}

	users, err := s.userRepo.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(memberIDs) {
		return nil, ErrMembersNotFound
	}

	now := time.Now()
	group := &domain.Group{
		ID:        uuid.New(),
		Name:      input.Name,
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	members := make([]domain.GroupMember, 0, len(memberIDs)+1)
	members = append(members, domain.GroupMember{
		GroupID: group.ID, UserID: creatorID, Role: domain.GroupRoleAdmin, JoinedAt: now,
	})
	for _, id := range memberIDs {
		members = append(members, domain.GroupMember{
			GroupID: group.ID, UserID: id, Role: domain.GroupRoleMember, JoinedAt: now,
		})
	}

	if err := s.groupRepo.Create(ctx, group, members); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}

	full, err := s.groupRepo.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	return &GroupDetail{Group: *group, Members: full, Messages: []domain.GroupMessage{}}, nil
}

// Get returns a group with members and messages. The caller must be a
// member; fetching the group advances the caller's read marker.
func (s *GroupService) Get(ctx context.Context, userID, groupID uuid.UUID) (*GroupDetail, error) {
	group, err := s.requireMember(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	messages, err := s.groupRepo.ListMessages(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		s.decodeGroup(&messages[i])
	}
	if messages == nil {
		messages = []domain.GroupMessage{}
	}

	if err := s.groupRepo.UpsertReadMarker(ctx, groupID, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("updating group read marker: %w", err)
	}

	return &GroupDetail{Group: *group, Members: members, Messages: messages}, nil
}

// PostMessage appends a message to the group and bumps its updated_at.
func (s *GroupService) PostMessage(ctx context.Context, userID, groupID uuid.UUID, text string) (*domain.GroupMessage, error) {
	if _, err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &domain.GroupMessage{
		ID:        uuid.New(),
		GroupID:   groupID,
		SenderID:  userID,
		Text:      text,
		CreatedAt: now,
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

	if err := s.groupRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating group message: %w", err)
	}
	if err := s.groupRepo.Touch(ctx, groupID, now); err != nil {
		return nil, fmt.Errorf("touching group: %w", err)
	}

	if s.codec != nil {
		msg.Text = text
	}
	if s.notifier != nil {
		s.notifier.NotifyGroupMessage(msg)
	}

	return msg, nil
}

// AddMembers adds users to the group. Only admins may do this. Ids
// already present are skipped; the call only fails with
// ErrAlreadyMembers when every requested id is already a member.
func (s *GroupService) AddMembers(ctx context.Context, requesterID, groupID uuid.UUID, memberIDs []uuid.UUID) (*GroupDetail, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	requester, err := s.groupRepo.GetMember(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil || requester.Role != domain.GroupRoleAdmin {
		return nil, ErrNotGroupAdmin
	}

	ids := dedupe(memberIDs, uuid.Nil)
	if len(ids) == 0 {
		return nil, ErrMembersNotFound
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, ErrMembersNotFound
	}

	existing, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	present := make(map[uuid.UUID]bool, len(existing))
	for _, m := range existing {
		present[m.UserID] = true
	}

	now := time.Now()
	var toAdd []domain.GroupMember
	for _, id := range ids {
		if present[id] {
			continue
		}
		toAdd = append(toAdd, domain.GroupMember{
			GroupID: groupID, UserID: id, Role: domain.GroupRoleMember, JoinedAt: now,
		})
	}
	if len(toAdd) == 0 {
		return nil, ErrAlreadyMembers
	}

	if err := s.groupRepo.AddMembers(ctx, groupID, toAdd); err != nil {
		return nil, fmt.Errorf("adding members: %w", err)
	}
	if err := s.groupRepo.Touch(ctx, groupID, now); err != nil {
		return nil, fmt.Errorf("touching group: %w", err)
	}

	if s.notifier != nil {
		added := make([]uuid.UUID, len(toAdd))
		for i, m := range toAdd {
			added[i] = m.UserID
		}
		s.notifier.NotifyGroupMembersAdded(groupID, added)
	}

	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.UpdatedAt = now
	return &GroupDetail{Group: *group, Members: members, Messages: []domain.GroupMessage{}}, nil
}

// RemoveMember removes a user from the group. Admins may remove
// anyone; a member may remove themselves. The creator can never be
// removed, and neither can the only remaining admin.
func (s *GroupService) RemoveMember(ctx context.Context, requesterID, groupID, userID uuid.UUID) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}

	requester, err := s.groupRepo.GetMember(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if requester == nil {
		return ErrNotGroupMember
	}
	if requester.Role != domain.GroupRoleAdmin && requesterID != userID {
		return ErrNotGroupAdmin
	}

	target, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if group.CreatedBy == userID {
		return ErrCannotRemoveCreator
	}
	if target.Role == domain.GroupRoleAdmin {
		admins, err := s.groupRepo.CountAdmins(ctx, groupID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	return s.groupRepo.Touch(ctx, groupID, time.Now())
}

// ListMyGroups returns every group the caller belongs to, most
// recently active first, with unread counts.
func (s *GroupService) ListMyGroups(ctx context.Context, userID uuid.UUID) ([]GroupSummary, error) {
	groups, err := s.groupRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread, err := s.groupRepo.CountUnreadByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, GroupSummary{Group: g, UnreadCount: unread[g.ID]})
	}
	return summaries, nil
}

func (s *GroupService) requireMember(ctx context.Context, userID, groupID uuid.UUID) (*domain.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	member, err := s.groupRepo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotGroupMember
	}
	return group, nil
}

func (s *GroupService) decodeGroup(msg *domain.GroupMessage) {
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

// dedupe returns the unique ids from the list, dropping exclude.
func dedupe(ids []uuid.UUID, exclude uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	var out []uuid.UUID
	for _, id := range ids {
		if id == exclude || id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
