package models

import "time"

// Bookmark is a saved URL owned by a single user.
type Bookmark struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `gorm:"column:create_at" json:"create_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	URL        string    `gorm:"uniqueIndex;not null" json:"url"`
	Body       string    `gorm:"type:text" json:"body"`
	ShortURL   string    `gorm:"size:12;uniqueIndex;not null" json:"short_url"`
	VisitCount uint      `gorm:"column:visits;not null;default:0" json:"visit"`

	// Relationships
	User     *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	VisitLog []Visit `gorm:"foreignKey:BookmarkID" json:"-"`
}
