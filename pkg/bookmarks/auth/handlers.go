package auth

import (
	"errors"
	"net/http"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db     *gorm.DB
	tokens *TokenManager
	log    logger.Logger
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, tokens *TokenManager, log logger.Logger) *Handler {
	return &Handler{db: db, tokens: tokens, log: log}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents the public fields of a user
type UserResponse struct {
	ID       uint   `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// LoginUser carries both tokens plus the user's public fields
type LoginUser struct {
	Refresh  string `json:"refresh"`
	Access   string `json:"access"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	User LoginUser `json:"user"`
}

// MeResponse wraps the authenticated user
type MeResponse struct {
	User UserResponse `json:"user"`
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg := validatePassword(req.Password); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if msg := validateUsername(req.Username); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var count int64
	if err := h.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		h.internalError(c, "Failed to check username", err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "User is not available"})
		return
	}

	if !ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "E-mail is not valid"})
		return
	}

	if err := h.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		h.internalError(c, "Failed to check email", err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email is not available"})
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		h.internalError(c, "Failed to process password", err)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashedPassword,
	}
	if err := h.db.Create(&user).Error; err != nil {
		// A concurrent registration won the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "User is not available"})
			return
		}
		h.internalError(c, "Failed to create user", err)
		return
	}

	h.log.Info("user registered", logger.Uint("user_id", user.ID), logger.String("username", user.Username))

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User created",
		User: UserResponse{
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.internalError(c, "Failed to look up user", err)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email"})
		return
	}

	if !CheckPassword(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	refresh, err := h.tokens.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		h.internalError(c, "Failed to generate token", err)
		return
	}
	access, err := h.tokens.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.internalError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		User: LoginUser{
			Refresh:  refresh,
			Access:   access,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

// Me returns the current authenticated user
func (h *Handler) Me(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User: UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

// Refresh exchanges a refresh token for a new access token
func (h *Handler) Refresh(c *gin.Context) {
	tokenString, ok := BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return
	}

	claims, err := h.tokens.ValidateToken(tokenString, TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": TokenErrorMessage(err)})
		return
	}

	var user models.User
	if err := h.db.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	access, err := h.tokens.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.internalError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// RegisterRoutes registers auth routes on the given router group.
// Middlewares in mw (typically a rate limiter) guard the credential endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	public := rg.Group("", mw...)
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	public.POST("/token/refresh", h.Refresh)

	rg.GET("/me", AuthMiddleware(h.tokens), h.Me)
}
