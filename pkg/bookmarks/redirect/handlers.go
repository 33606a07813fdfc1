package redirect

import (
	"errors"
	"net/http"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/cache"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/visits"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles redirect requests
type Handler struct {
	db       *gorm.DB
	cache    cache.Cache
	recorder visits.Recorder
	log      logger.Logger
	now      func() time.Time
}

// NewHandler creates a new redirect handler. A nil cache disables caching.
func NewHandler(db *gorm.DB, c cache.Cache, recorder visits.Recorder, log logger.Logger) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{db: db, cache: c, recorder: recorder, log: log, now: time.Now}
}

func (h *Handler) resolve(c *gin.Context, code string) (cache.Entry, error) {
	ctx := c.Request.Context()

	entry, ok, err := h.cache.Get(ctx, code)
	if err != nil {
		h.log.Warn("short url cache read failed", logger.String("short_url", code), logger.Error(err))
	}
	if ok {
		return entry, nil
	}

	var b models.Bookmark
	if err := h.db.Select("id", "url").Where("short_url = ?", code).First(&b).Error; err != nil {
		return cache.Entry{}, err
	}
	entry = cache.Entry{BookmarkID: b.ID, URL: b.URL}

	if err := h.cache.Set(ctx, code, entry); err != nil {
		h.log.Warn("short url cache write failed", logger.String("short_url", code), logger.Error(err))
	}
	return entry, nil
}

// Redirect resolves a short URL, records the visit and answers 302
func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("short_url")

	entry, err := h.resolve(c, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
			return
		}
		h.log.Error("failed to resolve short url", logger.String("short_url", code), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.recorder.Record(c.Request.Context(), entry.BookmarkID, h.now()); err != nil {
		// The cached entry outlived its bookmark.
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			_ = h.cache.Delete(c.Request.Context(), code)
			c.JSON(http.StatusNotFound, gin.H{"error": "Short URL not found"})
			return
		}
		h.log.Error("failed to record visit", logger.Uint("bookmark_id", entry.BookmarkID), logger.Error(err))
	}

	c.Redirect(http.StatusFound, entry.URL)
}

// RegisterRoutes registers the catch-all short URL route on the root router.
// Call it after the /api and /health routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/:short_url", h.Redirect)
}
