package travel

import "time"

// Destination is read-mostly content authored out of band.
type Destination struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Country     string    `gorm:"type:varchar(100);index" json:"country"`
	Continent   string    `gorm:"type:varchar(50);index" json:"continent"`
	Featured    bool      `gorm:"not null;default:false;index" json:"featured"`
	ImageURL    string    `gorm:"column:image_url;type:text" json:"image_url"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Destination) TableName() string { return "destinations" }

// PageURL is the canonical web path for the destination detail page.
func (d Destination) PageURL() string { return "/" + d.Slug + "-page.html" }
