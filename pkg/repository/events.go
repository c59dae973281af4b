package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/moonjewelry/pkg/models"
)

type EventUpdate struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Date         *time.Time `json:"date"`
	Location     *string    `json:"location"`
	MaxAttendees *int       `json:"max_attendees"`
	IsActive     *bool      `json:"is_active"`
}

// ActiveEvents lists active events by date, earliest first.
func (s *Store) ActiveEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("date").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *Store) UpcomingEvents(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND date >= ?", true, now).
		Order("date").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, id uint, u EventUpdate) (*models.Event, error) {
	var e models.Event
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "event")
	}

	updates := map[string]interface{}{}
	if u.Title != nil {
		updates["title"] = *u.Title
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Date != nil {
		updates["date"] = *u.Date
	}
	if u.Location != nil {
		updates["location"] = *u.Location
	}
	if u.MaxAttendees != nil {
		updates["max_attendees"] = *u.MaxAttendees
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&e).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update event: %w", err)
		}
	}
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "event")
	}
	return &e, nil
}
