package travel

import (
	"math"
	"time"
)

const (
	RatingMin = 1
	RatingMax = 5
)

// Rating is unique per (user, destination); a later write replaces the value.
type Rating struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"column:user_id;type:varchar(255);not null;uniqueIndex:idx_ratings_user_destination,priority:1" json:"user_id"`
	DestinationID int64     `gorm:"column:destination_id;not null;uniqueIndex:idx_ratings_user_destination,priority:2;index" json:"destination_id"`
	Rating        int       `gorm:"column:rating;not null" json:"rating"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Rating) TableName() string { return "ratings" }

// RatingAggregate is the average and count over all ratings of a destination.
type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// NewRatingAggregate rounds the average to two decimals; no ratings yields zero.
func NewRatingAggregate(avg *float64, count int64) RatingAggregate {
	if avg == nil || count == 0 {
		return RatingAggregate{}
	}
	return RatingAggregate{Average: math.Round(*avg*100) / 100, Count: count}
}

func ValidRating(v int) bool { return v >= RatingMin && v <= RatingMax }
