package server

import (
	"context"
	"net/http"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/apikeys"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/bookmark"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/importexport"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/redirect"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/stats"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/visits"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every handler onto a gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Recorder == nil {
		d.Recorder = visits.NewDBRecorder(d.DB)
	}
	if d.StartTime.IsZero() {
		d.StartTime = time.Now()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(d.Logger))

	r.GET("/health", health(d))
	r.GET("/readyz", ready(d))

	api := r.Group("/api/v1")
	{
		api.GET("/health", health(d))

		// Auth routes (credential endpoints are rate limited)
		authHandler := auth.NewHandler(d.DB, d.Tokens, d.Logger)
		authHandler.RegisterRoutes(api.Group("/auth"), auth.RateLimit(d.RateLimit))

		// Accepts JWT access tokens or API keys
		combinedAuth := apikeys.CombinedAuthMiddleware(d.DB, d.Tokens, d.Logger)

		// API key management requires a JWT
		apiKeysHandler := apikeys.NewHandler(d.DB, d.Logger)
		apiKeysHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware(d.Tokens)))

		bookmarks := api.Group("/bookmarks", combinedAuth)
		publicBookmarks := api.Group("/bookmarks")

		bookmarkHandler := bookmark.NewHandler(d.DB, d.Cache, d.Logger)
		bookmarkHandler.RegisterRoutes(bookmarks)

		statsHandler := stats.NewHandler(d.DB, d.Logger)
		statsHandler.RegisterRoutes(bookmarks, publicBookmarks)

		importExportHandler := importexport.NewHandler(d.DB, d.BaseURL, d.Logger)
		importExportHandler.RegisterRoutes(bookmarks)
	}

	// Registered last: catch-all for short codes.
	redirectHandler := redirect.NewHandler(d.DB, d.Cache, d.Recorder, d.Logger)
	redirectHandler.RegisterRoutes(r)

	return r
}

func health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "bookmarks",
			"uptime":  time.Since(d.StartTime).Round(time.Second).String(),
		})
	}
}

// ready reports whether the database (and Redis, when configured) answer.
func ready(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		ok := true

		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "down"
			ok = false
		} else {
			checks["database"] = "up"
		}

		if d.Redis != nil {
			if err := d.Redis.Ping(ctx).Err(); err != nil {
				checks["redis"] = "down"
				ok = false
			} else {
				checks["redis"] = "up"
			}
		}

		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
