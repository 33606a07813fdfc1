package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// KeyLength is the length of the generated API key in bytes (32 bytes = 64 hex chars)
	KeyLength = 32
	// KeyPrefixLength is the number of characters stored to identify a key
	KeyPrefixLength = 8
)

// Handler handles API key requests
type Handler struct {
	db  *gorm.DB
	log logger.Logger
}

// NewHandler creates a new API keys handler
func NewHandler(db *gorm.DB, log logger.Logger) *Handler {
	return &Handler{db: db, log: log}
}

// APIKeyResponse represents an API key in responses
type APIKeyResponse struct {
	ID          uint       `json:"id"`
	KeyPrefix   string     `json:"key_prefix"`
	Description string     `json:"description"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateAPIKeyRequest represents a request to create an API key
type CreateAPIKeyRequest struct {
	Description string `json:"description"`
}

// CreateAPIKeyResponse includes the full key (only shown once)
type CreateAPIKeyResponse struct {
	ID          uint      `json:"id"`
	Key         string    `json:"key"`
	KeyPrefix   string    `json:"key_prefix"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func generateAPIKey() (string, error) {
	b := make([]byte, KeyLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Create creates a new API key for the authenticated user
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateAPIKeyRequest
	// Description is optional; an empty body is fine.
	_ = c.ShouldBindJSON(&req)

	key, err := generateAPIKey()
	if err != nil {
		h.log.Error("failed to generate api key", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate API key"})
		return
	}

	apiKey := models.APIKey{
		UserID:      userID,
		KeyHash:     hashAPIKey(key),
		KeyPrefix:   key[:KeyPrefixLength],
		Description: req.Description,
	}
	if err := h.db.Create(&apiKey).Error; err != nil {
		h.log.Error("failed to create api key", logger.Error(err), logger.Uint("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create API key"})
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		ID:          apiKey.ID,
		Key:         key,
		KeyPrefix:   apiKey.KeyPrefix,
		Description: apiKey.Description,
		CreatedAt:   apiKey.CreatedAt,
	})
}

// List returns all API keys for the authenticated user
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var apiKeys []models.APIKey
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&apiKeys).Error; err != nil {
		h.log.Error("failed to fetch api keys", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API keys"})
		return
	}

	responses := make([]APIKeyResponse, len(apiKeys))
	for i, key := range apiKeys {
		responses[i] = APIKeyResponse{
			ID:          key.ID,
			KeyPrefix:   key.KeyPrefix,
			Description: key.Description,
			LastUsedAt:  key.LastUsedAt,
			CreatedAt:   key.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// Delete revokes an API key
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	keyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API key ID"})
		return
	}

	var apiKey models.APIKey
	if err := h.db.Where("id = ? AND user_id = ?", keyID, userID).First(&apiKey).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return
	}

	if err := h.db.Delete(&apiKey).Error; err != nil {
		h.log.Error("failed to delete api key", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete API key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
}

// ValidateAPIKey looks up the key record matching a raw key
func ValidateAPIKey(db *gorm.DB, key string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := db.Where("key_hash = ?", hashAPIKey(key)).First(&apiKey).Error; err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// UpdateLastUsed updates the last_used_at timestamp for an API key
func UpdateLastUsed(db *gorm.DB, apiKeyID uint) error {
	return db.Model(&models.APIKey{}).Where("id = ?", apiKeyID).Update("last_used_at", time.Now().UTC()).Error
}

// CombinedAuthMiddleware authenticates via JWT access token or API key.
// Both arrive as "Authorization: Bearer <token>". JWTs contain dots, API keys
// are hex strings without dots.
func CombinedAuthMiddleware(db *gorm.DB, tokens *auth.TokenManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c)
		if !ok {
			auth.AbortUnauthorized(c, auth.HeaderErrorMessage(c))
			return
		}

		if strings.Contains(token, ".") {
			claims, err := tokens.ValidateToken(token, auth.TokenTypeAccess)
			if err != nil {
				auth.AbortUnauthorized(c, auth.TokenErrorMessage(err))
				return
			}
			auth.SetUser(c, claims.UserID, claims.Username)
			c.Next()
			return
		}

		apiKey, err := ValidateAPIKey(db, token)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error("api key lookup failed", logger.Error(err))
			}
			auth.AbortUnauthorized(c, "Invalid API key")
			return
		}

		var user models.User
		if err := db.First(&user, apiKey.UserID).Error; err != nil {
			auth.AbortUnauthorized(c, "User not found")
			return
		}

		if err := UpdateLastUsed(db, apiKey.ID); err != nil {
			log.Warn("failed to update api key usage", logger.Error(err), logger.Uint("api_key_id", apiKey.ID))
		}

		auth.SetUser(c, user.ID, user.Username)
		c.Next()
	}
}

// RegisterRoutes registers API key routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/api-keys", h.Create)
	rg.GET("/api-keys", h.List)
	rg.DELETE("/api-keys/:id", h.Delete)
}
