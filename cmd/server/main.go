package main

import (
	"log"
	"net/http"
	"os"

	"chatline/backend/internal/auth"
	"chatline/backend/internal/chat"
	"chatline/backend/internal/config"
	"chatline/backend/internal/database"
	"chatline/backend/internal/handler"
	"chatline/backend/internal/hub"
	"chatline/backend/internal/mailer"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "chatline/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Chatline API
// @version         1.0
// @description     This is the API for the Chatline direct-messaging service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.LoadConfig()

	db := database.Connect(cfg.DatabaseURL)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	relay := hub.NewHub()
	chatService := chat.NewService(db, relay)

	users := &handler.UserHandler{
		DB:   db,
		Cfg:  cfg,
		Mail: mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
	chats := &handler.ChatHandler{Chat: chatService}
	stream := &handler.StreamHandler{Hub: relay, Chat: chatService}

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Uploaded avatars
	router.Static("/uploads", cfg.UploadDir)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", users.Register)
			authRoutes.POST("/login", users.Login)
			authRoutes.POST("/refresh", users.Refresh)
			authRoutes.POST("/reset-password", users.RequestPasswordReset)
			authRoutes.POST("/reset-password/:token", users.ConfirmPasswordReset)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.Middleware(cfg.JWTSecret))
		{
			userRoutes.GET("", users.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", users.GetMe)
			userRoutes.PUT("/me", users.UpdateProfile)
			userRoutes.GET("/me/requests", chats.PendingRequests)
			userRoutes.GET("/me/spam", chats.SpamChats)
			userRoutes.GET("/me/chats", chats.DirectChats)
			userRoutes.GET("/me/unread", chats.UnreadCounts)
			userRoutes.GET("/:id", users.GetUserByID)

			// Conversation admission routes
			userRoutes.POST("/:id/conversation", chats.StartConversation)
			userRoutes.POST("/:id/accept", chats.AcceptUser)
			userRoutes.POST("/:id/decline", chats.DeclineUser)
		}

		// Room routes (protected)
		roomRoutes := apiV1.Group("/rooms")
		roomRoutes.Use(auth.Middleware(cfg.JWTSecret))
		{
			roomRoutes.GET("/:id/messages", chats.ChatHistory)
			roomRoutes.POST("/:id/messages", chats.SendMessage)
			roomRoutes.POST("/:id/read", chats.MarkMessagesRead)
			roomRoutes.GET("/:id/members", chats.RoomMembers)
			roomRoutes.GET("/:id/stream", stream.Stream)
		}
	}

	log.Printf("Server is running on %s", cfg.Addr)
	log.Fatal(router.Run(cfg.Addr))
}
