package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/shikkha/messaging/internal/config"
	"github.com/shikkha/messaging/internal/crypto"
	"github.com/shikkha/messaging/internal/database"
	postgresrepo "github.com/shikkha/messaging/internal/repository/postgres"
	"github.com/shikkha/messaging/internal/service"
	"github.com/shikkha/messaging/internal/transport/http/handlers"
	"github.com/shikkha/messaging/internal/transport/http/middleware"
	"github.com/shikkha/messaging/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Message codec (at-rest encryption, optional outside production)
	var codec *crypto.Codec
	if cfg.EncryptionEnabled() {
		codec, err = crypto.NewCodec(cfg.MessageKey)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("Message encryption enabled")
	}

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	groupRepo := postgresrepo.NewGroupRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	messageService := service.NewMessageService(messageRepo, userRepo, codec)
	groupService := service.NewGroupService(groupRepo, userRepo, codec)

	// WebSocket hub (push is best-effort; clients poll the REST API)
	hub := ws.NewHub()
	go hub.Run()
	notifier := ws.NewHubNotifier(hub)
	messageService.SetNotifier(notifier)
	groupService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	messageHandler := handlers.NewMessageHandler(messageService)
	groupHandler := handlers.NewGroupHandler(groupService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Users
	mux.Handle("GET /api/v1/users/{id}", auth(http.HandlerFunc(authHandler.GetUser)))

	// Protected - Direct messages
	mux.Handle("POST /api/v1/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("GET /api/v1/messages/conversation/{userID}", auth(http.HandlerFunc(messageHandler.GetConversation)))
	mux.Handle("GET /api/v1/messages/inbox", auth(http.HandlerFunc(messageHandler.Inbox)))

	// Protected - Groups
	mux.Handle("POST /api/v1/groups", auth(http.HandlerFunc(groupHandler.Create)))
	mux.Handle("GET /api/v1/groups/my-groups", auth(http.HandlerFunc(groupHandler.ListMyGroups)))
	mux.Handle("GET /api/v1/groups/{id}", auth(http.HandlerFunc(groupHandler.Get)))
	mux.Handle("POST /api/v1/groups/{id}/messages", auth(http.HandlerFunc(groupHandler.PostMessage)))
	mux.Handle("POST /api/v1/groups/{id}/members", auth(http.HandlerFunc(groupHandler.AddMembers)))
	mux.Handle("DELETE /api/v1/groups/{id}/members/{uid}", auth(http.HandlerFunc(groupHandler.RemoveMember)))

	// WebSocket
	mux.HandleFunc("GET /api/v1/ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(mux)))
}
