package models

import "time"

// Author is an anonymous poster identified by email. Rows are never deleted by the application.
type Author struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:idx_authors_email" json:"-"`
	Name       string     `gorm:"size:64;not null" json:"name"`
	IPAddress  string     `gorm:"size:45;not null" json:"-"`
	CreatedAt  time.Time  `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
	LastPostAt *time.Time `gorm:"index:idx_authors_last_post_at" json:"-"`
	Posts      []Post     `json:"-"`
}

// HasPosted reports whether the author has ever completed a post.
func (a *Author) HasPosted() bool {
	return a.LastPostAt != nil
}
