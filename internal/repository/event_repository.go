package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// EventQuery narrows FindEvents. Nil pointers mean "no constraint".
type EventQuery struct {
	PlateNumber *string
	EventType   *string
	Marking     *string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

func (r *EventRepository) FindEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	query := r.db.WithContext(ctx).Model(&Event{}).Where("is_del = 0")

	if q.PlateNumber != nil {
		query = query.Where("plate_number = ?", *q.PlateNumber)
	}
	if q.EventType != nil {
		query = query.Where("event_type = ?", *q.EventType)
	}
	if q.Marking != nil {
		query = query.Where("marking = ?", *q.Marking)
	}
	if q.From != nil {
		query = query.Where("event_time >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("event_time <= ?", *q.To)
	}

	query = query.Order("event_time DESC")

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	query = query.Limit(limit)
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var events []Event
	err := query.Find(&events).Error
	return events, err
}
