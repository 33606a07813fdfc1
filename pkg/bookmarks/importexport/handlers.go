package importexport

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/auth"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/logger"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxImportSize = 10 << 20

// Handler handles import/export requests
type Handler struct {
	db       *gorm.DB
	importer *Importer
	baseURL  string
	log      logger.Logger
}

// NewHandler creates a new import/export handler. baseURL prefixes the
// short links in exports.
func NewHandler(db *gorm.DB, baseURL string, log logger.Logger) *Handler {
	return &Handler{db: db, importer: NewImporter(db), baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// ExportBookmark represents a bookmark for export
type ExportBookmark struct {
	URL       string `json:"url"`
	Body      string `json:"body"`
	ShortURL  string `json:"short_url"`
	ShortLink string `json:"short_link"`
	Visits    uint   `json:"visits"`
	CreatedAt string `json:"created_at"`
}

// ExportResponse is the export document
type ExportResponse struct {
	Bookmarks []ExportBookmark `json:"bookmarks"`
}

// Import creates bookmarks from {"bookmarks": [...]}
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	items, err := ParseDocument(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.importer.Import(c.Request.Context(), userID, items, nil)
	if err != nil {
		h.log.Error("import failed", logger.Error(err), logger.Uint("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import bookmarks"})
		return
	}

	h.log.Info("bookmarks imported",
		logger.Uint("user_id", userID),
		logger.Int("imported", result.Imported),
		logger.Int("skipped", result.Skipped))
	c.JSON(http.StatusOK, result)
}

// Export returns all of the caller's bookmarks
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var items []models.Bookmark
	if err := h.db.Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		h.log.Error("export failed", logger.Error(err), logger.Uint("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookmarks"})
		return
	}

	out := make([]ExportBookmark, len(items))
	for i, b := range items {
		out[i] = ExportBookmark{
			URL:       b.URL,
			Body:      b.Body,
			ShortURL:  b.ShortURL,
			ShortLink: h.baseURL + "/" + b.ShortURL,
			Visits:    b.VisitCount,
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=bookmarks-export.json")
	}

	c.JSON(http.StatusOK, ExportResponse{Bookmarks: out})
}

// RegisterRoutes registers import/export routes on the authenticated
// /bookmarks group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
}
