package user

import "time"

// Preferences is the local record for one identity-provider subject.
// A row exists only after that subject completed a login.
type Preferences struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalUserID     string    `gorm:"column:external_user_id;type:varchar(255);not null;uniqueIndex" json:"external_user_id"`
	DisplayName        *string   `gorm:"column:display_name;type:varchar(255)" json:"display_name,omitempty"`
	ProfilePictureURL  *string   `gorm:"column:profile_picture_url;type:text" json:"profile_picture_url,omitempty"`
	EmailNotifications bool      `gorm:"column:email_notifications;not null;default:true" json:"email_notifications"`
	CreatedAt          time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Preferences) TableName() string { return "user_preferences" }

// NewPreferences returns the defaults applied on first login.
func NewPreferences(externalUserID string, displayName string) *Preferences {
	p := &Preferences{ExternalUserID: externalUserID, EmailNotifications: true}
	if displayName != "" {
		p.DisplayName = &displayName
	}
	return p
}

func (p *Preferences) Name() string {
	if p == nil || p.DisplayName == nil {
		return ""
	}
	return *p.DisplayName
}
