package models

import "time"

// MediaType distinguishes stored items. Only photos are produced today;
// video is reserved.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// Media is one stored item inside a gallery.
type Media struct {
	ID           string
	GalleryID    string
	UserID       string
	Type         MediaType
	CloudID      string
	URL          string
	ThumbnailURL string
	Width        *int
	Height       *int
	UploadedAt   time.Time
}
