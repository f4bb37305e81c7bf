package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shikkha/messaging/internal/repository/memory"
	"github.com/shikkha/messaging/internal/service"
	"github.com/shikkha/messaging/internal/transport/http/handlers"
	"github.com/shikkha/messaging/internal/transport/http/middleware"
)

const testSecret = "test-secret"

type testServer struct {
	mux *http.ServeMux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := memory.Open()
	userRepo := memory.NewUserRepo(db)
	messageRepo := memory.NewMessageRepo(db)
	groupRepo := memory.NewGroupRepo(db)

	authService := service.NewAuthService(userRepo, testSecret)
	messageService := service.NewMessageService(messageRepo, userRepo, nil)
	groupService := service.NewGroupService(groupRepo, userRepo, nil)

	authHandler := handlers.NewAuthHandler(authService)
	messageHandler := handlers.NewMessageHandler(messageService)
	groupHandler := handlers.NewGroupHandler(groupService)

	auth := middleware.Auth(testSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/users/{id}", auth(http.HandlerFunc(authHandler.GetUser)))
	mux.Handle("POST /api/v1/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("GET /api/v1/messages/conversation/{userID}", auth(http.HandlerFunc(messageHandler.GetConversation)))
	mux.Handle("GET /api/v1/messages/inbox", auth(http.HandlerFunc(messageHandler.Inbox)))
	mux.Handle("POST /api/v1/groups", auth(http.HandlerFunc(groupHandler.Create)))
	mux.Handle("GET /api/v1/groups/my-groups", auth(http.HandlerFunc(groupHandler.ListMyGroups)))
	mux.Handle("GET /api/v1/groups/{id}", auth(http.HandlerFunc(groupHandler.Get)))
	mux.Handle("POST /api/v1/groups/{id}/messages", auth(http.HandlerFunc(groupHandler.PostMessage)))
	mux.Handle("POST /api/v1/groups/{id}/members", auth(http.HandlerFunc(groupHandler.AddMembers)))
	mux.Handle("DELETE /api/v1/groups/{id}/members/{uid}", auth(http.HandlerFunc(groupHandler.RemoveMember)))

	return &testServer{mux: mux}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

type testUser struct {
	ID    uuid.UUID
	Token string
}

// register creates a user through the API and returns its id and token.
func (s *testServer) register(t *testing.T, username string) testUser {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        username + "@shikkha.test",
		"username":     username,
		"display_name": username,
		"password":     "Passw0rd",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		User struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return testUser{ID: resp.User.ID, Token: resp.AccessToken}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/v1/messages/inbox",
		"/api/v1/groups/my-groups",
	} {
		rec := srv.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestDirectMessageFlow(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")

	// A sender id in the body is ignored: identity comes from the token.
	rec := srv.do(t, http.MethodPost, "/api/v1/messages", alice.Token, map[string]any{
		"sender_id":    bob.ID,
		"recipient_id": bob.ID,
		"text":         "hello bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sent struct {
		SenderID    uuid.UUID `json:"sender_id"`
		RecipientID uuid.UUID `json:"recipient_id"`
		Text        string    `json:"text"`
	}
	decodeJSON(t, rec, &sent)
	assert.Equal(t, alice.ID, sent.SenderID)
	assert.Equal(t, bob.ID, sent.RecipientID)

	// Missing text fails validation.
	rec = srv.do(t, http.MethodPost, "/api/v1/messages", alice.Token, map[string]any{
		"recipient_id": bob.ID,
		"text":         "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown recipient is rejected at send time.
	rec = srv.do(t, http.MethodPost, "/api/v1/messages", alice.Token, map[string]any{
		"recipient_id": uuid.New(),
		"text":         "anyone there?",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Both sides see the same history.
	for _, u := range []struct {
		token string
		other uuid.UUID
	}{{alice.Token, bob.ID}, {bob.Token, alice.ID}} {
		rec = srv.do(t, http.MethodGet, "/api/v1/messages/conversation/"+u.other.String(), u.token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []struct {
			Text string `json:"text"`
		}
		decodeJSON(t, rec, &msgs)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hello bob", msgs[0].Text)
	}

	rec = srv.do(t, http.MethodGet, "/api/v1/messages/inbox", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox []struct {
		OtherUserID uuid.UUID `json:"other_user_id"`
		UnreadCount int       `json:"unread_count"`
	}
	decodeJSON(t, rec, &inbox)
	require.Len(t, inbox, 1)
	assert.Equal(t, alice.ID, inbox[0].OtherUserID)
	// Bob already viewed the conversation above.
	assert.Equal(t, 0, inbox[0].UnreadCount)
}

func TestGroupFlow(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")
	carol := srv.register(t, "carol")
	dave := srv.register(t, "dave")

	rec := srv.do(t, http.MethodPost, "/api/v1/groups", alice.Token, map[string]any{
		"name":    "Study",
		"members": []uuid.UUID{bob.ID, carol.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var group struct {
		ID      uuid.UUID `json:"id"`
		Members []struct {
			UserID uuid.UUID `json:"user_id"`
			Role   string    `json:"role"`
		} `json:"members"`
	}
	decodeJSON(t, rec, &group)
	require.Len(t, group.Members, 3)

	groupPath := "/api/v1/groups/" + group.ID.String()

	rec = srv.do(t, http.MethodPost, groupPath+"/messages", alice.Token, map[string]string{"text": "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A member sees the message.
	rec = srv.do(t, http.MethodGet, groupPath, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Messages []struct {
			SenderID uuid.UUID `json:"sender_id"`
			Text     string    `json:"text"`
		} `json:"messages"`
	}
	decodeJSON(t, rec, &detail)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, alice.ID, detail.Messages[0].SenderID)
	assert.Equal(t, "hi", detail.Messages[0].Text)

	// A non-member is rejected.
	rec = srv.do(t, http.MethodGet, groupPath, dave.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, groupPath+"/messages", dave.Token, map[string]string{"text": "hey"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Only admins add members.
	rec = srv.do(t, http.MethodPost, groupPath+"/members", bob.Token, map[string]any{
		"members": []uuid.UUID{dave.ID},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, groupPath+"/members", alice.Token, map[string]any{
		"members": []uuid.UUID{dave.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// All requested members already present.
	rec = srv.do(t, http.MethodPost, groupPath+"/members", alice.Token, map[string]any{
		"members": []uuid.UUID{bob.ID, dave.ID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Admin removes a member; creator stays put.
	rec = srv.do(t, http.MethodDelete, fmt.Sprintf("%s/members/%s", groupPath, dave.ID), alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, fmt.Sprintf("%s/members/%s", groupPath, alice.ID), alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/groups/my-groups", carol.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var myGroups []struct {
		ID          uuid.UUID `json:"id"`
		UnreadCount int       `json:"unread_count"`
	}
	decodeJSON(t, rec, &myGroups)
	require.Len(t, myGroups, 1)
	assert.Equal(t, group.ID, myGroups[0].ID)
	assert.Equal(t, 1, myGroups[0].UnreadCount)
}

func TestGetUser(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice")
	bob := srv.register(t, "bob")

	rec := srv.do(t, http.MethodGet, "/api/v1/users/"+bob.ID.String(), alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	decodeJSON(t, rec, &user)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, "student", user.Role)

	rec = srv.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString(), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
