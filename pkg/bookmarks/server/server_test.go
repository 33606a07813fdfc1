package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/cache"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/database"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type testServer struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
}

func setupTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.Connect("sqlite", ":memory:", nil)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	router := NewRouter(Deps{
		DB:        db,
		Logger:    logger.Nop(),
		Tokens:    auth.NewTokenManager("test-secret-0123456789", 15*time.Minute, time.Hour),
		Cache:     cache.NewRedisCache(rdb, time.Hour),
		Redis:     rdb,
		RateLimit: auth.RateLimitConfig{Burst: 100, RefillPerMin: 100},
		BaseURL:   "http://localhost:8080",
	})
	return &testServer{router: router, mr: mr}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) login(t *testing.T, username string) string {
	resp := s.do(t, "POST", "/api/v1/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cret!",
	}, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", resp.Code, resp.Body.String())
	}

	resp = s.do(t, "POST", "/api/v1/auth/login", map[string]string{
		"email":    username + "@example.com",
		"password": "s3cret!",
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", resp.Code, resp.Body.String())
	}
	var body struct {
		User struct {
			Access string `json:"access"`
		} `json:"user"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)
	return body.User.Access
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health", "/readyz"} {
		resp := s.do(t, "GET", path, nil, "")
		if resp.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, resp.Code)
		}
	}
}

func TestReadyzReportsRedisDown(t *testing.T) {
	s := setupTestServer(t)
	s.mr.Close()

	resp := s.do(t, "GET", "/readyz", nil, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.Code)
	}
}

func TestBookmarkLifecycle(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "alice")

	resp := s.do(t, "POST", "/api/v1/bookmarks/", map[string]string{"url": "https://go.dev", "body": "Go"}, token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Create failed: %d %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID       uint   `json:"id"`
		ShortURL string `json:"short_url"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)

	// Two visits through the public redirect
	for i := 0; i < 2; i++ {
		resp = s.do(t, "GET", "/"+created.ShortURL, nil, "")
		if resp.Code != http.StatusFound || resp.Header().Get("Location") != "https://go.dev" {
			t.Fatalf("Redirect failed: %d %s", resp.Code, resp.Header().Get("Location"))
		}
	}

	resp = s.do(t, "GET", fmt.Sprintf("/api/v1/bookmarks/%d", created.ID), nil, token)
	var got struct {
		Visit uint `json:"visit"`
	}
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Visit != 2 {
		t.Errorf("Expected 2 visits, got %d", got.Visit)
	}

	resp = s.do(t, "GET", "/api/v1/bookmarks/stats", nil, token)
	if resp.Code != http.StatusOK {
		t.Errorf("Stats failed: %d", resp.Code)
	}

	// Per-bookmark stats are public
	resp = s.do(t, "GET", fmt.Sprintf("/api/v1/bookmarks/stats/%d", created.ID), nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Public stats failed: %d", resp.Code)
	}
	var one struct {
		Last7Days struct {
			Data []int64 `json:"data"`
		} `json:"last_7_days"`
	}
	json.Unmarshal(resp.Body.Bytes(), &one)
	if n := len(one.Last7Days.Data); n != 7 || one.Last7Days.Data[6] != 2 {
		t.Errorf("Expected 2 visits today, got %v", one.Last7Days.Data)
	}

	resp = s.do(t, "DELETE", fmt.Sprintf("/api/v1/bookmarks/%d", created.ID), nil, token)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("Delete failed: %d", resp.Code)
	}

	resp = s.do(t, "GET", "/"+created.ShortURL, nil, "")
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.Code)
	}

	resp = s.do(t, "GET", fmt.Sprintf("/api/v1/bookmarks/stats/%d", created.ID), nil, "")
	if resp.Code != http.StatusNotAcceptable {
		t.Errorf("Expected stats 406 after delete, got %d", resp.Code)
	}
}

func TestAPIKeyAccess(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "alice")

	resp := s.do(t, "POST", "/api/v1/api-keys", map[string]string{"description": "cli"}, token)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Create API key failed: %d %s", resp.Code, resp.Body.String())
	}
	var key struct {
		Key string `json:"key"`
	}
	json.Unmarshal(resp.Body.Bytes(), &key)

	resp = s.do(t, "GET", "/api/v1/bookmarks/", nil, key.Key)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected API key to grant bookmark access, got %d", resp.Code)
	}

	// Key management itself requires a JWT
	resp = s.do(t, "GET", "/api/v1/api-keys", nil, key.Key)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	s := setupTestServer(t)
	alice := s.login(t, "alice")
	bob := s.login(t, "bob")

	resp := s.do(t, "POST", "/api/v1/bookmarks/", map[string]string{"url": "https://go.dev"}, alice)
	var created struct {
		ID uint `json:"id"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)

	path := fmt.Sprintf("/api/v1/bookmarks/%d", created.ID)
	for _, method := range []string{"GET", "PUT", "DELETE"} {
		resp = s.do(t, method, path, map[string]string{"url": "https://example.com"}, bob)
		if resp.Code != http.StatusNotAcceptable {
			t.Errorf("%s by another user: expected 406, got %d", method, resp.Code)
		}
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop")
	}
}
