// Package memory holds in-memory repository implementations used in
// tests and local development without a database.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shikkha/messaging/internal/domain"
)

type pairKey struct {
	a, b uuid.UUID
}

type DB struct {
	mu sync.RWMutex

	users map[uuid.UUID]domain.User

	messages    []domain.DirectMessage
	readMarkers map[pairKey]time.Time

	groups        map[uuid.UUID]domain.Group
	groupMembers  map[uuid.UUID][]domain.GroupMember
	groupMessages map[uuid.UUID][]domain.GroupMessage
	groupRead     map[pairKey]time.Time
}

func Open() *DB {
	return &DB{
		users:         make(map[uuid.UUID]domain.User),
		readMarkers:   make(map[pairKey]time.Time),
		groups:        make(map[uuid.UUID]domain.Group),
		groupMembers:  make(map[uuid.UUID][]domain.GroupMember),
		groupMessages: make(map[uuid.UUID][]domain.GroupMessage),
		groupRead:     make(map[pairKey]time.Time),
	}
}
