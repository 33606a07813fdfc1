package importexport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/bookmark"
	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"gorm.io/gorm"
)

// Result summarises an import run
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Importer creates bookmarks for one owner from parsed items.
type Importer struct {
	db  *gorm.DB
	now func() time.Time
}

func NewImporter(db *gorm.DB) *Importer {
	return &Importer{db: db, now: time.Now}
}

// Import stores every valid item whose URL is not taken yet. progress, when
// non-nil, is called once per item.
func (im *Importer) Import(ctx context.Context, userID uint, items []Item, progress func()) (Result, error) {
	db := im.db.WithContext(ctx)
	result := Result{Errors: []string{}}

	skip := func(i int, reason string) {
		result.Errors = append(result.Errors, fmt.Sprintf("bookmark %d: %s", i, reason))
		result.Skipped++
	}

	for i, item := range items {
		if progress != nil {
			progress()
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !bookmark.ValidURL(item.URL) {
			skip(i, "invalid URL")
			continue
		}

		createdAt := im.now().UTC()
		if item.CreatedAt != "" {
			t, err := parseTime(item.CreatedAt)
			if err != nil {
				skip(i, "invalid time format")
				continue
			}
			createdAt = t
		}

		var count int64
		if err := db.Model(&models.Bookmark{}).Where("url = ?", item.URL).Count(&count).Error; err != nil {
			return result, err
		}
		if count > 0 {
			skip(i, "URL already exists")
			continue
		}

		code, err := bookmark.GenerateShortURL(db)
		if err != nil {
			return result, err
		}

		b := models.Bookmark{
			UserID:    userID,
			URL:       item.URL,
			Body:      item.Body,
			ShortURL:  code,
			CreatedAt: createdAt,
		}
		if err := db.Create(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				skip(i, "URL already exists")
				continue
			}
			return result, err
		}
		result.Imported++
	}

	return result, nil
}
