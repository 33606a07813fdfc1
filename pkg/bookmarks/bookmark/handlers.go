package bookmark

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/cache"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// ValidURL reports whether raw is an absolute http(s) URL with a host.
func ValidURL(raw string) bool {
	return validate.Var(raw, "required,http_url") == nil
}

// Handler handles bookmark requests
type Handler struct {
	db    *gorm.DB
	cache cache.Cache
	log   logger.Logger
}

// NewHandler creates a new bookmark handler. A nil cache disables invalidation.
func NewHandler(db *gorm.DB, c cache.Cache, log logger.Logger) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{db: db, cache: c, log: log}
}

// BookmarkRequest is the body of create and update
type BookmarkRequest struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

// BookmarkResponse represents a bookmark in API responses
type BookmarkResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	ShortURL  string    `json:"short_url"`
	Visit     uint      `json:"visit"`
	Body      string    `json:"body"`
	CreateAt  time.Time `json:"create_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListResponse is one page of bookmarks
type ListResponse struct {
	Data []BookmarkResponse `json:"data"`
	Meta Meta               `json:"meta"`
}

func toResponse(b models.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:        b.ID,
		URL:       b.URL,
		ShortURL:  b.ShortURL,
		Visit:     b.VisitCount,
		Body:      b.Body,
		CreateAt:  b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotAcceptable, gin.H{"message": "Item not found"})
}

// urlTaken reports whether another bookmark already stores url.
func (h *Handler) urlTaken(url string, excludeID uint) (bool, error) {
	query := h.db.Model(&models.Bookmark{}).Where("url = ?", url)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// findOwned loads a bookmark by the :id param if it belongs to the caller.
// It writes the error response itself and returns false when it did.
func (h *Handler) findOwned(c *gin.Context) (models.Bookmark, bool) {
	var b models.Bookmark
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid bookmark ID"})
		return b, false
	}

	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
		} else {
			h.internalError(c, "Failed to fetch bookmark", err)
		}
		return b, false
	}
	return b, true
}

// Create creates a new bookmark for the authenticated user
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !ValidURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Enter a valid URL! example: "http://www.yoursite.com"`})
		return
	}

	taken, err := h.urlTaken(req.URL, 0)
	if err != nil {
		h.internalError(c, "Failed to check URL", err)
		return
	}
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL already exists"})
		return
	}

	shortURL, err := GenerateShortURL(h.db)
	if err != nil {
		h.internalError(c, "Failed to generate short URL", err)
		return
	}

	b := models.Bookmark{
		UserID:   userID,
		URL:      req.URL,
		Body:     req.Body,
		ShortURL: shortURL,
	}
	if err := h.db.Create(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "URL already exists"})
			return
		}
		h.internalError(c, "Failed to create bookmark", err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(b))
}

// Get returns a single owned bookmark
func (h *Handler) Get(c *gin.Context) {
	b, ok := h.findOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponse(b))
}

// List returns a page of the caller's bookmarks ordered by id
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	page := queryInt(c, "page", defaultPage)
	perPage := queryInt(c, "per_page", defaultPerPage)

	if page < 1 || perPage < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	query := h.db.Model(&models.Bookmark{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.internalError(c, "Failed to count bookmarks", err)
		return
	}

	perPage = perPageOf(perPage)
	if page != 1 && page > pageCount(total, perPage) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	var items []models.Bookmark
	if err := query.Order("id").Limit(perPage).Offset((page - 1) * perPage).Find(&items).Error; err != nil {
		h.internalError(c, "Failed to fetch bookmarks", err)
		return
	}

	data := make([]BookmarkResponse, len(items))
	for i, b := range items {
		data[i] = toResponse(b)
	}

	c.JSON(http.StatusOK, ListResponse{Data: data, Meta: newMeta(page, perPage, total)})
}

// Update replaces url and body of an owned bookmark
func (h *Handler) Update(c *gin.Context) {
	b, ok := h.findOwned(c)
	if !ok {
		return
	}

	var req BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !ValidURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Enter a valid URL"})
		return
	}

	taken, err := h.urlTaken(req.URL, b.ID)
	if err != nil {
		h.internalError(c, "Failed to check URL", err)
		return
	}
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL already exists"})
		return
	}

	urlChanged := b.URL != req.URL
	b.URL = req.URL
	b.Body = req.Body
	if err := h.db.Model(&b).Select("url", "body", "updated_at").Updates(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "URL already exists"})
			return
		}
		h.internalError(c, "Failed to update bookmark", err)
		return
	}

	if urlChanged {
		h.invalidate(c, b.ShortURL)
	}

	c.JSON(http.StatusOK, toResponse(b))
}

// Delete removes an owned bookmark together with its visits
func (h *Handler) Delete(c *gin.Context) {
	b, ok := h.findOwned(c)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bookmark_id = ?", b.ID).Delete(&models.Visit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&b).Error
	})
	if err != nil {
		h.internalError(c, "Failed to delete bookmark", err)
		return
	}

	h.invalidate(c, b.ShortURL)
	c.Status(http.StatusNoContent)
}

func (h *Handler) invalidate(c *gin.Context, shortURL string) {
	if err := h.cache.Delete(c.Request.Context(), shortURL); err != nil {
		h.log.Warn("failed to invalidate short url cache", logger.String("short_url", shortURL), logger.Error(err))
	}
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, logger.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// RegisterRoutes registers bookmark routes. rg is expected to be the
// authenticated /bookmarks group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/", h.Create)
	rg.GET("", h.List)
	rg.GET("/", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
