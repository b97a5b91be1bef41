package httpapi

import (
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

type userView struct {
	ID             string `json:"id"`
	TelegramID     int64  `json:"telegramId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	ApprovalStatus string `json:"approvalStatus,omitempty"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:             u.ID,
		TelegramID:     u.TelegramID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Username:       u.Username,
		Role:           string(u.Role),
		ApprovalStatus: string(u.ApprovalStatus),
	}
}

type loginRequest struct {
	InitData string `json:"initData"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type requesterView struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

type requestView struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	TelegramID  int64         `json:"telegramId"`
	Status      string        `json:"status"`
	RequestedAt *time.Time    `json:"requestedAt"`
	ResolvedAt  *time.Time    `json:"resolvedAt"`
	User        requesterView `json:"user"`
}

func newRequestView(u *models.User) requestView {
	return requestView{
		ID:          u.ID,
		UserID:      u.ID,
		TelegramID:  u.TelegramID,
		Status:      string(u.ApprovalStatus),
		RequestedAt: u.RequestedAt,
		ResolvedAt:  u.ResolvedAt,
		User:        requesterView{FirstName: u.FirstName, LastName: u.LastName, Username: u.Username},
	}
}

type resolveRequest struct {
	Action string `json:"action"`
}

type rsvpRequest struct {
	Status       string `json:"status"`
	GuestCount   int    `json:"guestCount"`
	DietaryNotes string `json:"dietaryNotes"`
}

type rsvpView struct {
	UserID       string    `json:"userId"`
	Status       string    `json:"status"`
	GuestCount   int       `json:"guestCount"`
	DietaryNotes string    `json:"dietaryNotes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Guest        string    `json:"guest,omitempty"`
}

func newRSVPView(r *models.RSVP) rsvpView {
	return rsvpView{
		UserID:       r.UserID,
		Status:       string(r.Status),
		GuestCount:   r.GuestCount,
		DietaryNotes: r.DietaryNotes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type rsvpSavedResponse struct {
	Message string   `json:"message"`
	RSVP    rsvpView `json:"rsvp"`
}

type statsView struct {
	Attending    int `json:"attending"`
	NotAttending int `json:"notAttending"`
	Maybe        int `json:"maybe"`
	TotalGuests  int `json:"totalGuests"`
}

type galleryView struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	GuestName     string    `json:"guestName"`
	CoverPhotoURL string    `json:"coverPhotoUrl"`
	PhotoCount    int       `json:"photoCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newGalleryView(g *models.Gallery) galleryView {
	return galleryView{
		ID:            g.ID,
		UserID:        g.UserID,
		GuestName:     g.GuestName,
		CoverPhotoURL: g.CoverPhotoURL,
		PhotoCount:    g.PhotoCount,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

type galleryPreviewView struct {
	galleryView
	Previews []string `json:"previews"`
}

type mediaView struct {
	ID           string    `json:"id"`
	GalleryID    string    `json:"galleryId"`
	UserID       string    `json:"userId"`
	Type         string    `json:"type"`
	CloudID      string    `json:"cloudId"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

func newMediaView(m *models.Media) mediaView {
	return mediaView{
		ID:           m.ID,
		GalleryID:    m.GalleryID,
		UserID:       m.UserID,
		Type:         string(m.Type),
		CloudID:      m.CloudID,
		URL:          m.URL,
		ThumbnailURL: m.ThumbnailURL,
		Width:        m.Width,
		Height:       m.Height,
		UploadedAt:   m.UploadedAt,
	}
}

type galleryDetailView struct {
	galleryView
	Photos []mediaView `json:"photos"`
}

type uploadResponse struct {
	ID           string `json:"id"`
	GalleryID    string `json:"galleryId"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}
