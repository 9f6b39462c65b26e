package travel

import "time"

const (
	CommentMinLength = 5
	CommentMaxLength = 1000
)

// Comment stays hidden from public listings until Approved is set.
type Comment struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"column:user_id;type:varchar(255);not null;index" json:"user_id"`
	DestinationID int64     `gorm:"column:destination_id;not null;index:idx_comments_destination_approved,priority:1" json:"destination_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Approved      bool      `gorm:"not null;default:false;index:idx_comments_destination_approved,priority:2" json:"approved"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Comment) TableName() string { return "comments" }

// CommentView carries the author's display name; nil when the author has no preferences row.
type CommentView struct {
	Comment     `gorm:"embedded"`
	DisplayName *string `gorm:"column:display_name" json:"display_name"`
}

func (v CommentView) Author() string {
	if v.DisplayName == nil || *v.DisplayName == "" {
		return "Anonymous"
	}
	return *v.DisplayName
}
