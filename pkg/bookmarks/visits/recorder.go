package visits

import (
	"context"
	"fmt"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"gorm.io/gorm"
)

// Recorder persists one resolution of a short URL.
type Recorder interface {
	Record(ctx context.Context, bookmarkID uint, at time.Time) error
}

// DBRecorder writes visits synchronously.
type DBRecorder struct {
	db *gorm.DB
}

func NewDBRecorder(db *gorm.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

// Record inserts the visit row and bumps the bookmark counter in one transaction.
func (r *DBRecorder) Record(ctx context.Context, bookmarkID uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Bookmark{}).
			Where("id = ?", bookmarkID).
			UpdateColumn("visits", gorm.Expr("visits + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("increment visits: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		visit := models.Visit{BookmarkID: bookmarkID, VisitingHours: at.UTC()}
		if err := tx.Create(&visit).Error; err != nil {
			return fmt.Errorf("insert visit: %w", err)
		}
		return nil
	})
}
