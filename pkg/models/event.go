package models

import "time"

type Event struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"type:varchar(200);not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Date         time.Time `gorm:"not null;index" json:"date"`
	Location     string    `gorm:"type:varchar(200)" json:"location"`
	ImagePath    string    `gorm:"type:varchar(255)" json:"image_path,omitempty"`
	MaxAttendees *int      `json:"max_attendees,omitempty"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

func (e Event) IsUpcoming(now time.Time) bool {
	return !e.Date.Before(now)
}
