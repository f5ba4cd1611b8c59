package models

import "time"

// Post is a message owned by exactly one Author. DeletedAt is a terminal soft-delete marker.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AuthorID    uint       `gorm:"index:idx_posts_author_id;not null" json:"author_id"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	CreatedAt   time.Time  `gorm:"index:idx_posts_created_at;not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
	DeletedAt   *time.Time `gorm:"index:idx_posts_deleted_at" json:"-"`
	EditToken   string     `gorm:"size:64;not null;uniqueIndex:idx_posts_edit_token" json:"-"`
	DeleteToken string     `gorm:"size:64;not null;uniqueIndex:idx_posts_delete_token" json:"-"`
	Author      Author     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}

// IsDeleted reports whether the post has been soft-deleted.
func (p *Post) IsDeleted() bool {
	return p.DeletedAt != nil
}
