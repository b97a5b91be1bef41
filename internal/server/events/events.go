// Package events publishes domain events (guest approval, gallery changes)
// to a RabbitMQ topic exchange so other systems, such as a notification
// bot, can react to them.
package events

import (
	"context"
	"time"
)

// Routing keys.
const (
	KeyGuestRequested = "guest.requested"
	KeyGuestResolved  = "guest.resolved"
	KeyPhotoUploaded  = "gallery.photo_uploaded"
	KeyMediaDeleted   = "gallery.media_deleted"
)

// Publisher sends a payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

// Envelope is the message body.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

type GuestRequested struct {
	UserID     string `json:"userId"`
	TelegramID int64  `json:"telegramId"`
}

type GuestResolved struct {
	UserID  string `json:"userId"`
	Status  string `json:"status"`
	AdminID string `json:"adminId"`
}

type PhotoUploaded struct {
	MediaID   string `json:"mediaId"`
	GalleryID string `json:"galleryId"`
	UserID    string `json:"userId"`
	URL       string `json:"url"`
}

type MediaDeleted struct {
	MediaID   string `json:"mediaId"`
	GalleryID string `json:"galleryId"`
	DeletedBy string `json:"deletedBy"`
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// Observer is told about every publish attempt.
type Observer interface {
	ObserveEvent(key string, err error)
}

type observed struct {
	Publisher
	obs Observer
}

// Observe reports every Publish call of p to obs.
func Observe(p Publisher, obs Observer) Publisher {
	if obs == nil {
		return p
	}
	return &observed{Publisher: p, obs: obs}
}

func (o *observed) Publish(ctx context.Context, key string, payload any) error {
	err := o.Publisher.Publish(ctx, key, payload)
	o.obs.ObserveEvent(key, err)
	return err
}
