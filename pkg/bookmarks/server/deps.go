package server

import (
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/cache"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/visits"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps is everything the router needs. Cache and Redis may be nil.
type Deps struct {
	DB        *gorm.DB
	Logger    logger.Logger
	Tokens    *auth.TokenManager
	Cache     cache.Cache
	Redis     *redis.Client
	Recorder  visits.Recorder
	RateLimit auth.RateLimitConfig
	BaseURL   string
	StartTime time.Time
}
