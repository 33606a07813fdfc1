package stats

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const monthsShown = 5

// Handler serves visit statistics
type Handler struct {
	db  *gorm.DB
	log logger.Logger
	now func() time.Time
}

// NewHandler creates a new stats handler
func NewHandler(db *gorm.DB, log logger.Logger) *Handler {
	return &Handler{db: db, log: log, now: time.Now}
}

// BookmarkStats summarises one bookmark's visits
type BookmarkStats struct {
	TotalClicks uint        `json:"total_clicks"`
	URL         string      `json:"url"`
	ID          uint        `json:"id"`
	ShortURL    string      `json:"short_url"`
	Visits      []time.Time `json:"visits"`
}

// OneStatsResponse holds the histograms of a single bookmark
type OneStatsResponse struct {
	MonthlyStats Series `json:"monthly_stats"`
	WeeklyStats  Series `json:"weekly_stats"`
	Last7Days    Series `json:"last_7_days"`
	Last30Days   Series `json:"last_30_days"`
}

// GetAll lists every bookmark of the caller with its raw visit timestamps
func (h *Handler) GetAll(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var items []models.Bookmark
	err := h.db.Where("user_id = ?", userID).
		Preload("VisitLog", func(db *gorm.DB) *gorm.DB { return db.Order("visiting_hours") }).
		Order("id").
		Find(&items).Error
	if err != nil {
		h.log.Error("failed to fetch stats", logger.Error(err), logger.Uint("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	data := make([]BookmarkStats, len(items))
	for i, b := range items {
		times := make([]time.Time, len(b.VisitLog))
		for j, v := range b.VisitLog {
			times[j] = v.VisitingHours.UTC()
		}
		data[i] = BookmarkStats{
			TotalClicks: b.VisitCount,
			URL:         b.URL,
			ID:          b.ID,
			ShortURL:    b.ShortURL,
			Visits:      times,
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// GetOne returns monthly, weekly and daily histograms for one bookmark
func (h *Handler) GetOne(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotAcceptable, gin.H{"message": "Item not found"})
		return
	}

	var b models.Bookmark
	if err := h.db.Preload("VisitLog").First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotAcceptable, gin.H{"message": "Item not found"})
			return
		}
		h.log.Error("failed to fetch bookmark stats", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	times := make([]time.Time, len(b.VisitLog))
	for i, v := range b.VisitLog {
		times[i] = v.VisitingHours
	}

	now := h.now()
	c.JSON(http.StatusOK, OneStatsResponse{
		MonthlyStats: Monthly(times, monthsShown, now),
		WeeklyStats:  Weekly(times),
		Last7Days:    LastDays(times, 7, now),
		Last30Days:   LastDays(times, 30, now),
	})
}

// RegisterRoutes registers stats routes. authed must carry the auth
// middleware; per-bookmark stats are served from public.
func (h *Handler) RegisterRoutes(authed, public *gin.RouterGroup) {
	authed.GET("/stats", h.GetAll)
	public.GET("/stats/:id", h.GetOne)
}
