package models

import "time"

// Visit is one resolution of a bookmark's short URL. Rows are append-only
// and disappear only with their bookmark.
type Visit struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	BookmarkID    uint      `gorm:"not null;index" json:"bookmark_id"`
	VisitingHours time.Time `gorm:"index" json:"visiting_hours"`

	Bookmark *Bookmark `gorm:"foreignKey:BookmarkID;constraint:OnDelete:CASCADE" json:"-"`
}
