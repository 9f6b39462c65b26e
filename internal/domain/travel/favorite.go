package travel

import "time"

type Favorite struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"column:user_id;type:varchar(255);not null;uniqueIndex:idx_favorites_user_destination,priority:1" json:"user_id"`
	DestinationID int64     `gorm:"column:destination_id;not null;uniqueIndex:idx_favorites_user_destination,priority:2;index" json:"destination_id"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Favorite) TableName() string { return "favorites" }

// FavoriteView is a favorite joined with the destination fields shown in lists.
type FavoriteView struct {
	Favorite `gorm:"embedded"`
	Slug     string `gorm:"column:slug" json:"slug"`
	Title    string `gorm:"column:title" json:"title"`
	ImageURL string `gorm:"column:image_url" json:"image_url"`
	Country  string `gorm:"column:country" json:"country"`
}

func (v FavoriteView) PageURL() string { return "/" + v.Slug + "-page.html" }
