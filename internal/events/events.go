// Package events publishes enrollment notifications to RabbitMQ.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facial-recognition/internal/database"
)

// Event types.
const (
	TypeTemplateCreated = "template.created"
	TypeTemplateUpdated = "template.updated"
)

// Event is the JSON body of an enrollment notification.
type Event struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Username        string    `json:"username"`
	UserID          int64     `json:"user_id"`
	TemplateID      int64     `json:"template_id"`
	SourceImageName string    `json:"source_image_name,omitempty"`
	EnrolledAt      time.Time `json:"enrolled_at"`
}

// TemplateEnrolled builds the event for a template that was just stored.
func TemplateEnrolled(created bool, tpl *database.Template) Event {
	eventType := TypeTemplateUpdated
	if created {
		eventType = TypeTemplateCreated
	}
	return Event{
		ID:              uuid.NewString(),
		Type:            eventType,
		Username:        tpl.Username,
		UserID:          tpl.UserID,
		TemplateID:      tpl.ID,
		SourceImageName: tpl.SourceImageName,
		EnrolledAt:      tpl.EnrolledAt.UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event. Used when RABBITMQ_URL is unset.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
