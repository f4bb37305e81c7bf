package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikkha/messaging/internal/crypto"
	"github.com/shikkha/messaging/internal/domain"
	"github.com/shikkha/messaging/internal/repository/memory"
)

type testEnv struct {
	db          *memory.DB
	userRepo    *memory.UserRepo
	messageRepo *memory.MessageRepo
	groupRepo   *memory.GroupRepo

	auth     *AuthService
	messages *MessageService
	groups   *GroupService
}

func newTestEnv(t *testing.T, codec *crypto.Codec) *testEnv {
	t.Helper()
	db := memory.Open()
	env := &testEnv{
		db:          db,
		userRepo:    memory.NewUserRepo(db),
		messageRepo: memory.NewMessageRepo(db),
		groupRepo:   memory.NewGroupRepo(db),
	}
	env.auth = NewAuthService(env.userRepo, "test-secret")
	env.messages = NewMessageService(env.messageRepo, env.userRepo, codec)
	env.groups = NewGroupService(env.groupRepo, env.userRepo, codec)
	return env
}

func (env *testEnv) addUser(t *testing.T, username string) uuid.UUID {
	t.Helper()
	now := time.Now()
	u := &domain.User{
		ID:          uuid.New(),
		Email:       username + "@shikkha.test",
		Username:    username,
		DisplayName: username,
		Role:        domain.RoleStudent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, env.userRepo.Create(context.Background(), u))
	return u.ID
}

func testCodec(t *testing.T) *crypto.Codec {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	codec, err := crypto.NewCodec(key)
	require.NoError(t, err)
	return codec
}

func TestSendThenGetConversation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	before := time.Now()
	msg, err := env.messages.Send(ctx, alice, bob, "hello bob")
	require.NoError(t, err)
	assert.Equal(t, alice, msg.SenderID)
	assert.Equal(t, bob, msg.RecipientID)
	assert.Equal(t, "hello bob", msg.Text)
	assert.Equal(t, "alice", msg.SenderUsername)

	conv, err := env.messages.GetConversation(ctx, alice, bob)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, "hello bob", conv[0].Text)
	assert.Equal(t, alice, conv[0].SenderID)
	assert.Equal(t, bob, conv[0].RecipientID)
	assert.False(t, conv[0].CreatedAt.Before(before))
}

func TestConversationSymmetryAndOrdering(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	texts := []string{"hi", "hey", "how is the course going?"}
	senders := []uuid.UUID{alice, bob, alice}
	recipients := []uuid.UUID{bob, alice, bob}
	for i := range texts {
		_, err := env.messages.Send(ctx, senders[i], recipients[i], texts[i])
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	ab, err := env.messages.GetConversation(ctx, alice, bob)
	require.NoError(t, err)
	ba, err := env.messages.GetConversation(ctx, bob, alice)
	require.NoError(t, err)

	require.Len(t, ab, 3)
	require.Len(t, ba, 3)
	for i := range ab {
		assert.Equal(t, texts[i], ab[i].Text)
		assert.Equal(t, ab[i].ID, ba[i].ID)
		if i > 0 {
			assert.False(t, ab[i].CreatedAt.Before(ab[i-1].CreatedAt))
		}
	}
}

func TestSendRejectsSelfAndUnknownRecipient(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.addUser(t, "alice")

	_, err := env.messages.Send(ctx, alice, alice, "note to self")
	assert.ErrorIs(t, err, ErrCannotMessageSelf)

	_, err = env.messages.Send(ctx, alice, uuid.New(), "into the void")
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	conv, err := env.messages.GetConversation(ctx, alice, alice)
	require.NoError(t, err)
	assert.Empty(t, conv)
}

func TestInboxOrderingAndUnreadCounts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	carol := env.addUser(t, "carol")
	dave := env.addUser(t, "dave")

	// Three counterparts message alice at t1 < t2 < t3.
	for _, sender := range []uuid.UUID{bob, carol, dave} {
		_, err := env.messages.Send(ctx, sender, alice, "ping")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	inbox, err := env.messages.Inbox(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	assert.Equal(t, dave, inbox[0].OtherUserID)
	assert.Equal(t, carol, inbox[1].OtherUserID)
	assert.Equal(t, bob, inbox[2].OtherUserID)
	for _, conv := range inbox {
		assert.Equal(t, 1, conv.UnreadCount)
		assert.Equal(t, "ping", conv.LastMessage.Text)
	}

	// Viewing a conversation advances the read marker.
	_, err = env.messages.GetConversation(ctx, alice, bob)
	require.NoError(t, err)

	inbox, err = env.messages.Inbox(ctx, alice)
	require.NoError(t, err)
	for _, conv := range inbox {
		if conv.OtherUserID == bob {
			assert.Equal(t, 0, conv.UnreadCount)
		} else {
			assert.Equal(t, 1, conv.UnreadCount)
		}
	}
}

func TestReadMarkerNeverMovesBackward(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	_, err := env.messages.Send(ctx, bob, alice, "ping")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	// Viewing the conversation marks it read.
	_, err = env.messages.GetConversation(ctx, alice, bob)
	require.NoError(t, err)

	marker, err := env.messageRepo.GetReadMarker(ctx, alice, bob)
	require.NoError(t, err)
	require.NotNil(t, marker)

	// A stale upsert must not rewind the marker.
	stale := marker.LastReadAt.Add(-time.Hour)
	require.NoError(t, env.messageRepo.UpsertReadMarker(ctx, alice, bob, stale))

	after, err := env.messageRepo.GetReadMarker(ctx, alice, bob)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, marker.LastReadAt, after.LastReadAt)

	unread, err := env.messageRepo.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, unread[bob])
}

func TestInboxKeepsOnlyLatestMessagePerCounterpart(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	_, err := env.messages.Send(ctx, alice, bob, "first")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = env.messages.Send(ctx, bob, alice, "second")
	require.NoError(t, err)

	inbox, err := env.messages.Inbox(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, bob, inbox[0].OtherUserID)
	assert.Equal(t, "second", inbox[0].LastMessage.Text)
	assert.Equal(t, "bob", inbox[0].OtherUserUsername)
}

func TestMessagesEncryptedAtRest(t *testing.T) {
	env := newTestEnv(t, testCodec(t))
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	sent, err := env.messages.Send(ctx, alice, bob, "secret syllabus")
	require.NoError(t, err)
	assert.Equal(t, "secret syllabus", sent.Text)

	// The repository row holds ciphertext only.
	raw, err := env.messageRepo.ListConversation(ctx, alice, bob)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Empty(t, raw[0].Text)
	assert.NotEmpty(t, raw[0].Ciphertext)
	assert.Len(t, raw[0].Nonce, 12)

	// Reads are transparently decrypted.
	conv, err := env.messages.GetConversation(ctx, alice, bob)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, "secret syllabus", conv[0].Text)

	inbox, err := env.messages.Inbox(ctx, bob)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "secret syllabus", inbox[0].LastMessage.Text)
}

func TestCorruptMessageDoesNotAbortConversation(t *testing.T) {
	env := newTestEnv(t, testCodec(t))
	ctx := context.Background()
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")

	_, err := env.messages.Send(ctx, alice, bob, "readable")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	// A row whose ciphertext no longer authenticates.
	corrupt := &domain.DirectMessage{
		ID:          uuid.New(),
		SenderID:    bob,
		RecipientID: alice,
		Ciphertext:  []byte("not a real ciphertext"),
		Nonce:       make([]byte, 12),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, env.messageRepo.Create(ctx, corrupt))

	conv, err := env.messages.GetConversation(ctx, alice, bob)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "readable", conv[0].Text)
	assert.False(t, conv[0].Unreadable)
	assert.True(t, conv[1].Unreadable)
	assert.Empty(t, conv[1].Text)
}
