package apikeys

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/database"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var testTokens = auth.NewTokenManager("test-secret-0123456789", 15*time.Minute, time.Hour)

const testKey = "abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Connect("sqlite", ":memory:", nil)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	hash, _ := auth.HashPassword("s3cret!")
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, logger.Nop())

	api := r.Group("/api/v1")
	api.Use(auth.AuthMiddleware(testTokens))
	handler.RegisterRoutes(api)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := testTokens.GenerateAccessToken(user.ID, user.Username)
	return "Bearer " + token
}

func TestCreateAPIKey(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "alice")

	jsonBody, _ := json.Marshal(CreateAPIKeyRequest{Description: "Test API Key"})
	req, _ := http.NewRequest("POST", "/api/v1/api-keys", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response CreateAPIKeyResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if len(response.Key) != KeyLength*2 {
		t.Errorf("Expected key length %d, got %d", KeyLength*2, len(response.Key))
	}
	if response.KeyPrefix != response.Key[:KeyPrefixLength] {
		t.Error("Key prefix should match the start of the key")
	}
	if response.Description != "Test API Key" {
		t.Errorf("Expected description 'Test API Key', got '%s'", response.Description)
	}

	var stored models.APIKey
	db.First(&stored, response.ID)
	if stored.KeyHash == response.Key {
		t.Error("Raw key must not be stored")
	}
	if stored.KeyHash != hashAPIKey(response.Key) {
		t.Error("Stored hash should match the returned key")
	}
}

func TestCreateAPIKeyWithoutDescription(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "alice")

	req, _ := http.NewRequest("POST", "/api/v1/api-keys", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListAPIKeysOnlyShowsOwnKeys(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	db.Create(&models.APIKey{UserID: alice.ID, KeyHash: "hash1", KeyPrefix: "key1abcd", Description: "Key 1"})
	db.Create(&models.APIKey{UserID: alice.ID, KeyHash: "hash2", KeyPrefix: "key2efgh", Description: "Key 2"})
	db.Create(&models.APIKey{UserID: bob.ID, KeyHash: "hash3", KeyPrefix: "key3ijkl"})

	req, _ := http.NewRequest("GET", "/api/v1/api-keys", nil)
	req.Header.Set("Authorization", getAuthHeader(alice))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response []APIKeyResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if len(response) != 2 {
		t.Fatalf("Expected 2 API keys, got %d", len(response))
	}
	for _, k := range response {
		if k.KeyPrefix == "key3ijkl" {
			t.Error("Should only see own API keys")
		}
	}
}

func TestDeleteAPIKey(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "alice")

	apiKey := models.APIKey{UserID: user.ID, KeyHash: "hash1", KeyPrefix: "key1abcd"}
	db.Create(&apiKey)

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/v1/api-keys/%d", apiKey.ID), nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.APIKey{}).Where("id = ?", apiKey.ID).Count(&count)
	if count != 0 {
		t.Error("API key should be deleted")
	}
}

func TestDeleteAPIKeyNotOwned(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	apiKey := models.APIKey{UserID: bob.ID, KeyHash: "hash1", KeyPrefix: "key1abcd"}
	db.Create(&apiKey)

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/v1/api-keys/%d", apiKey.ID), nil)
	req.Header.Set("Authorization", getAuthHeader(alice))
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestValidateAPIKey(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	apiKey := models.APIKey{UserID: user.ID, KeyHash: hashAPIKey(testKey), KeyPrefix: testKey[:KeyPrefixLength]}
	db.Create(&apiKey)

	result, err := ValidateAPIKey(db, testKey)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.ID != apiKey.ID {
		t.Error("Expected to find the API key")
	}

	if _, err := ValidateAPIKey(db, "wrongkey"); err == nil {
		t.Error("Expected error for invalid key")
	}
}

func setupMiddlewareRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CombinedAuthMiddleware(db, testTokens, logger.Nop()))
	r.GET("/test", func(c *gin.Context) {
		userID, _ := auth.GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return r
}

func TestCombinedAuthMiddlewareAPIKey(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	apiKey := models.APIKey{UserID: user.ID, KeyHash: hashAPIKey(testKey), KeyPrefix: testKey[:KeyPrefixLength]}
	db.Create(&apiKey)

	r := setupMiddlewareRouter(db)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &response)
	if uint(response["user_id"].(float64)) != user.ID {
		t.Error("User ID should be set in context")
	}

	var updated models.APIKey
	db.First(&updated, apiKey.ID)
	if updated.LastUsedAt == nil {
		t.Error("LastUsedAt should be set after use")
	}
}

func TestCombinedAuthMiddlewareJWT(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	r := setupMiddlewareRouter(db)

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	// Refresh tokens are not accepted on protected routes
	refresh, _ := testTokens.GenerateRefreshToken(user.ID, user.Username)
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestCombinedAuthMiddlewareInvalidKey(t *testing.T) {
	db := setupTestDB(t)
	r := setupMiddlewareRouter(db)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"unknown key", "Bearer invalidkey"},
		{"malformed jwt", "Bearer a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", resp.Code)
			}
		})
	}
}
