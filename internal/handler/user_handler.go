package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"chatline/backend/internal/auth"
	"chatline/backend/internal/config"
	"chatline/backend/internal/mailer"
	"chatline/backend/internal/models"
	"chatline/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
	Email    string `json:"email" binding:"required,email" example:"alice@example.com"`
	Name     string `json:"name" binding:"required" example:"Alice"`
	Surname  string `json:"surname" binding:"required" example:"Doe"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// RefreshInput carries the token to refresh.
type RefreshInput struct {
	Token string `json:"token" binding:"required"`
}

// ResetRequestInput starts the reset-password flow.
type ResetRequestInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetConfirmInput completes the reset-password flow.
type ResetConfirmInput struct {
	Password string `json:"password" binding:"required,min=8"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID        uint   `json:"id" example:"1"`
	Username  string `json:"username" example:"alice"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ProfileResponse defines the full profile view.
type ProfileResponse struct {
	ID        uint   `json:"id" example:"1"`
	Username  string `json:"username" example:"alice"`
	Email     string `json:"email" example:"alice@example.com"`
	Name      string `json:"name" example:"Alice"`
	Surname   string `json:"surname" example:"Doe"`
	Note      string `json:"note,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

func newPublicUserResponse(user models.User) PublicUserResponse {
	return PublicUserResponse{ID: user.ID, Username: user.Username, AvatarURL: user.AvatarURL}
}

func newProfileResponse(user models.User) ProfileResponse {
	return ProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		Surname:   user.Surname,
		Note:      user.Note,
		AvatarURL: user.AvatarURL,
	}
}

// endregion

// UserHandler serves registration, login, profile and user search.
type UserHandler struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Mail *mailer.Mailer
}

// region --- Auth Handlers ---

// Register godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]interface{} "{"token": "...", "user": {...}}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingUser models.User
	if err := h.DB.Where("username = ? OR email = ?", input.Username, input.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Name:         input.Name,
		Surname:      input.Surname,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := jwt.GenerateToken(h.Cfg.JWTSecret, user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": newProfileResponse(user)})
}

// Login godoc
// @Summary      Log in a user
// @Description  Authenticates a user with username and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]interface{} "{"token": "...", "user": {...}}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := jwt.GenerateToken(h.Cfg.JWTSecret, user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": newPublicUserResponse(user)})
}

// Refresh godoc
// @Summary      Refresh an authentication token
// @Description  Exchanges a valid token for a fresh one.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RefreshInput true "Current token"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/refresh [post]
func (h *UserHandler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	claims, err := jwt.ParseToken(h.Cfg.JWTSecret, input.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	token, err := jwt.GenerateToken(h.Cfg.JWTSecret, claims.UserID, claims.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// RequestPasswordReset godoc
// @Summary      Request a password reset
// @Description  Emails a reset link to the given address if a user exists for it.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body ResetRequestInput true "Account email"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  ErrorResponse
// @Router       /auth/reset-password [post]
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var input ResetRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	reset := models.PasswordReset{Email: input.Email, Token: uuid.NewString()}
	if err := h.DB.Create(&reset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	// Fire-and-forget; the response does not wait for SMTP.
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.Cfg.PublicURL, reset.Token)
	h.Mail.SendPasswordReset(input.Email, resetURL)

	c.JSON(http.StatusOK, gin.H{"message": "Password reset link has been sent to your email"})
}

// ConfirmPasswordReset godoc
// @Summary      Complete a password reset
// @Description  Sets a new password for the account behind a valid reset token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token path string true "Reset token"
// @Param        input body ResetConfirmInput true "New password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  ErrorResponse "Invalid or expired token"
// @Router       /auth/reset-password/{token} [post]
func (h *UserHandler) ConfirmPasswordReset(c *gin.Context) {
	token := c.Param("token")

	var input ResetConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var reset models.PasswordReset
	if err := h.DB.Where("token = ?", token).First(&reset).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := h.DB.Model(&models.User{}).Where("email = ?", reset.Email).
		Update("password_hash", string(hashedPassword)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	h.DB.Delete(&reset)

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// endregion

// region --- User Handlers ---

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches for users by username fragment, excluding the caller.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q query string false "Search query for username"
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)
	searchQuery := c.Query("q")

	query := h.DB.Model(&models.User{}).Where("id <> ?", viewerID).Limit(50)
	if searchQuery != "" {
		query = query.Where("username LIKE ?", "%"+searchQuery+"%")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	responses := make([]PublicUserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, newPublicUserResponse(user))
	}

	c.JSON(http.StatusOK, responses)
}

// GetMe godoc
// @Summary      Get current user's profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ProfileResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)

	var user models.User
	if err := h.DB.First(&user, viewerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// GetUserByID godoc
// @Summary      Get a user's profile by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "User ID"
// @Success      200  {object}  ProfileResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.DB.First(&user, uint(targetUserID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// UpdateProfile godoc
// @Summary      Update the current user's profile
// @Description  Updates profile fields and optionally the password and avatar (multipart form).
// @Tags         users
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        username formData string true  "Username"
// @Param        email    formData string true  "Email"
// @Param        name     formData string true  "Name"
// @Param        surname  formData string true  "Surname"
// @Param        note     formData string false "Note"
// @Param        password formData string false "New password"
// @Param        avatar   formData file   false "Avatar image"
// @Success      200  {object}  ProfileResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	viewerID := auth.CurrentUserID(c)

	var user models.User
	if err := h.DB.First(&user, viewerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	username := c.PostForm("username")
	email := c.PostForm("email")
	name := c.PostForm("name")
	surname := c.PostForm("surname")
	if username == "" || email == "" || name == "" || surname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields except password are required"})
		return
	}

	user.Username = username
	user.Email = email
	user.Name = name
	user.Surname = surname
	user.Note = c.PostForm("note")

	if password := c.PostForm("password"); password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		user.PasswordHash = string(hashedPassword)
	}

	if file, err := c.FormFile("avatar"); err == nil {
		filename := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename))
		dst := filepath.Join(h.Cfg.UploadDir, filename)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
			return
		}
		user.AvatarURL = "/uploads/" + filename
	}

	if err := h.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// endregion
