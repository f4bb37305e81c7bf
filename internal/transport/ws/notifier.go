package ws

import (
	"log"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
// Push delivery is a latency optimization on top of REST polling; a
// missed event is picked up by the next poll.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyDirectMessage(msg *domain.DirectMessage) {
	evt, err := NewEvent(EventTypeDirectMessage, nil, DirectMessagePayload{DirectMessage: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToUser(msg.RecipientID, evt)
}

func (n *HubNotifier) NotifyGroupMessage(msg *domain.GroupMessage) {
	evt, err := NewEvent(EventTypeGroupMessage, &msg.GroupID, GroupMessagePayload{GroupMessage: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToGroup(msg.GroupID, evt, nil)
}

func (n *HubNotifier) NotifyGroupMembersAdded(groupID uuid.UUID, userIDs []uuid.UUID) {
	evt, err := NewEvent(EventTypeGroupMembersAdded, &groupID, MembersAddedPayload{GroupID: groupID, UserIDs: userIDs})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	// New members are not yet subscribed to the group; poke them directly.
	for _, id := range userIDs {
		n.hub.BroadcastToUser(id, evt)
	}
	n.hub.BroadcastToGroup(groupID, evt, nil)
}
