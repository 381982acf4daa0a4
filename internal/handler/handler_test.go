package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatline/backend/internal/auth"
	"chatline/backend/internal/chat"
	"chatline/backend/internal/config"
	"chatline/backend/internal/database"
	"chatline/backend/internal/hub"
	"chatline/backend/internal/mailer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret: testSecret,
		PublicURL: "http://localhost:8080",
		UploadDir: t.TempDir(),
	}

	relay := hub.NewHub()
	chatService := chat.NewService(db, relay)

	users := &UserHandler{DB: db, Cfg: cfg, Mail: mailer.New("localhost", 25, "", "")}
	chats := &ChatHandler{Chat: chatService}

	router := gin.New()
	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", users.Register)
			authRoutes.POST("/login", users.Login)
			authRoutes.POST("/refresh", users.Refresh)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.Middleware(cfg.JWTSecret))
		{
			userRoutes.GET("", users.SearchUsers)
			userRoutes.GET("/me", users.GetMe)
			userRoutes.GET("/me/requests", chats.PendingRequests)
			userRoutes.GET("/me/spam", chats.SpamChats)
			userRoutes.GET("/me/chats", chats.DirectChats)
			userRoutes.GET("/me/unread", chats.UnreadCounts)
			userRoutes.GET("/:id", users.GetUserByID)
			userRoutes.POST("/:id/conversation", chats.StartConversation)
			userRoutes.POST("/:id/accept", chats.AcceptUser)
			userRoutes.POST("/:id/decline", chats.DeclineUser)
		}

		roomRoutes := apiV1.Group("/rooms")
		roomRoutes.Use(auth.Middleware(cfg.JWTSecret))
		{
			roomRoutes.GET("/:id/messages", chats.ChatHistory)
			roomRoutes.POST("/:id/messages", chats.SendMessage)
			roomRoutes.POST("/:id/read", chats.MarkMessagesRead)
			roomRoutes.GET("/:id/members", chats.RoomMembers)
		}
	}
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *gin.Engine, username, password string) (token string, userID uint) {
	t.Helper()

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"password": password,
		"email":    username + "@example.com",
		"name":     username,
		"surname":  "Test",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.Token)
	return response.Token, response.User.ID
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)

	registerUser(t, router, "alice", "password123")

	t.Run("duplicate username rejected", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"username": "alice",
			"password": "password456",
			"email":    "other@example.com",
			"name":     "Alice",
			"surname":  "Other",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"username": "incomplete",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login succeeds with the right password", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"username": "alice",
			"password": "password123",
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "token")
	})

	t.Run("login fails with the wrong password", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"username": "alice",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("protected route requires a token", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/users/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTokenRefresh(t *testing.T) {
	router := newTestRouter(t)
	token, _ := registerUser(t, router, "alice", "password123")

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"token": token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")

	w = doRequest(t, router, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"token": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConversationFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	aliceToken, aliceID := registerUser(t, router, "alice", "password123")
	bobToken, bobID := registerUser(t, router, "bob", "password456")
	malloryToken, _ := registerUser(t, router, "mallory", "password789")

	// Alice opens a conversation toward Bob.
	w := doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/conversation", bobID), aliceToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var conversation ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversation))
	assert.True(t, conversation.Created)
	roomID := conversation.RoomID

	// A second request resolves to the same room.
	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/conversation", bobID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversation))
	assert.False(t, conversation.Created)
	assert.Equal(t, roomID, conversation.RoomID)

	// Alice sends a message.
	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/messages", roomID), aliceToken, gin.H{"message": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// An outsider cannot write into the room.
	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/messages", roomID), malloryToken, gin.H{"message": "let me in"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Bob sees the request and the history.
	w = doRequest(t, router, http.MethodGet, "/api/v1/users/me/requests", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%d/messages", roomID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history []MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Body)
	assert.False(t, history[0].IsRead)

	// Bob has one unread message from Alice.
	w = doRequest(t, router, http.MethodGet, "/api/v1/users/me/unread", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"%d":1`, aliceID))

	// Bob opens the room; his unread badge clears.
	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/rooms/%d/read", roomID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/users/me/unread", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{}", w.Body.String())

	// Bob declines Alice after all; she is blocked from now on.
	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/decline", aliceID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/conversation", bobID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/users/me/spam", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestSearchUsersExcludesCaller(t *testing.T) {
	router := newTestRouter(t)
	aliceToken, _ := registerUser(t, router, "alice", "password123")
	registerUser(t, router, "alicia", "password456")
	registerUser(t, router, "bob", "password789")

	w := doRequest(t, router, http.MethodGet, "/api/v1/users?q=ali", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alicia")
	assert.NotContains(t, w.Body.String(), `"username":"alice"`)
	assert.NotContains(t, w.Body.String(), "bob")
}
