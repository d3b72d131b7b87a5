package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"chat-realtime/internal/auth"
	"chat-realtime/internal/config"
	"chat-realtime/internal/database"
	"chat-realtime/internal/models"
	"chat-realtime/internal/repositories/postgres"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	// Connect to database
	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	slog.Info("Database connection established")

	ctx := context.Background()
	userRepo := postgres.NewUserRepository(db)
	chatRepo := postgres.NewChatRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	// Seed users
	slog.Info("Creating initial users...")
	testUsers := []struct {
		username string
		email    string
		password string
	}{
		{"admin", "admin@chat.local", "123456"},
		{"alice", "alice@chat.local", "123456"},
		{"bob", "bob@chat.local", "123456"},
		{"charlie", "charlie@chat.local", "123456"},
	}

	users := make(map[string]*models.User, len(testUsers))
	for _, userData := range testUsers {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(userData.password), bcrypt.DefaultCost)
		user := &models.User{
			Username: userData.username,
			Email:    userData.email,
			Password: string(hashedPassword),
		}

		if err := userRepo.Create(ctx, user); err != nil {
			slog.Warn("User might already exist", "username", userData.username, "error", err)
			existing, err := userRepo.FindByEmail(ctx, userData.email)
			if err != nil {
				log.Fatal("Failed to load existing user:", err)
			}
			user = existing
		} else {
			slog.Info("Created user", "username", userData.username, "id", user.ID)
		}
		users[userData.username] = user
	}

	// Seed chats
	slog.Info("Creating initial chats...")
	direct := &models.Chat{}
	if err := chatRepo.Create(ctx, direct, []uint{users["alice"].ID, users["bob"].ID}); err != nil {
		slog.Warn("Failed to create direct chat", "error", err)
	}
	group := &models.Chat{Name: "general", IsGroup: true}
	groupMembers := []uint{users["admin"].ID, users["alice"].ID, users["bob"].ID, users["charlie"].ID}
	if err := chatRepo.Create(ctx, group, groupMembers); err != nil {
		slog.Warn("Failed to create group chat", "error", err)
	}

	// Seed sample messages. They stay "sent" until the recipients connect.
	slog.Info("Creating sample messages...")
	samples := []struct {
		chat   *models.Chat
		sender string
		text   string
	}{
		{group, "admin", "Welcome to the general chat!"},
		{group, "alice", "Hi everyone! Excited to be here."},
		{direct, "bob", "Hi Alice! If you need any help, feel free to ask."},
	}
	for _, s := range samples {
		if s.chat.ID == 0 {
			continue
		}
		msg := &models.Message{ChatID: s.chat.ID, SenderID: users[s.sender].ID, Content: s.text, Type: models.MessageTypeText}
		if err := messageRepo.Create(ctx, msg); err != nil {
			slog.Warn("Failed to create message", "error", err)
			continue
		}
		if err := chatRepo.SetLastMessage(ctx, s.chat.ID, msg.ID); err != nil {
			slog.Warn("Failed to set last message", "error", err)
		}
		if err := chatRepo.IncrementUnread(ctx, s.chat.ID, msg.SenderID); err != nil {
			slog.Warn("Failed to bump unread counters", "error", err)
		}
	}

	// Dev tokens for connecting to /api/v1/ws
	for _, userData := range testUsers {
		token, err := auth.IssueToken(cfg.JWT.Secret, users[userData.username], cfg.JWT.ExpirationTime)
		if err != nil {
			slog.Warn("Failed to issue token", "username", userData.username, "error", err)
			continue
		}
		fmt.Printf("%-8s %s\n", userData.username, token)
	}

	slog.Info("Database seeding completed successfully!")
}
