package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/logging"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/dmitrijs2005/weddingtma/internal/server/events"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/weddingtma/internal/server/storage"
)

const (
	MaxPhotosPerGallery = 50
	PreviewCount        = 3
	MaxUploadBytes      = 10 << 20

	folderPrefix = "wedding/"
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// IsAllowedMimeType reports whether a photo of this type may be uploaded.
func IsAllowedMimeType(mime string) bool {
	_, ok := allowedMimeTypes[mime]
	return ok
}

// GalleryDetail is a gallery with all of its photos.
type GalleryDetail struct {
	Gallery *models.Gallery
	Media   []*models.Media
}

// GalleryService manages per-guest galleries and their media.
//
// The capacity check in UploadPhoto is not locked: concurrent uploads by the
// same guest can each pass it and overshoot the cap by the number of
// concurrent requests. photo_count itself is always updated atomically.
type GalleryService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	storage     storage.Provider
	publisher   events.Publisher
	timeout     time.Duration
	logger      logging.Logger
}

func NewGalleryService(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager,
	p storage.Provider, pub events.Publisher, timeout time.Duration, logger logging.Logger) *GalleryService {
	return &GalleryService{
		db:          db,
		tx:          tx,
		repomanager: m,
		storage:     p,
		publisher:   pub,
		timeout:     timeout,
		logger:      logger.With("service", "gallery"),
	}
}

func (s *GalleryService) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// UploadPhoto stores a photo for user and records it in the user's gallery,
// creating the gallery on first upload.
func (s *GalleryService) UploadPhoto(ctx context.Context, user *models.User, data []byte, mimeType string) (*models.Media, error) {
	if !IsAllowedMimeType(mimeType) {
		return nil, common.Errorf(common.ErrValidation, "Only JPEG, PNG and WebP images are allowed")
	}
	if len(data) == 0 {
		return nil, common.Errorf(common.ErrValidation, "No file uploaded")
	}
	if len(data) > MaxUploadBytes {
		return nil, common.Errorf(common.ErrValidation, "File too large (10MB max)")
	}

	g, err := s.repomanager.Galleries(s.db).GetByUserID(ctx, user.ID)
	switch {
	case err == nil:
		n, err := s.repomanager.Media(s.db).CountByGallery(ctx, g.ID, models.MediaPhoto)
		if err != nil {
			return nil, fmt.Errorf("%w: count photos: %v", common.ErrorInternal, err)
		}
		if n >= MaxPhotosPerGallery {
			return nil, common.Errorf(common.ErrCapacityExceeded, "Gallery limit reached (%d photos max)", MaxPhotosPerGallery)
		}
	case errors.Is(err, common.ErrorNotFound):
	default:
		return nil, fmt.Errorf("%w: load gallery: %v", common.ErrorInternal, err)
	}

	uctx, cancel := s.storageContext(ctx)
	res, err := s.storage.Upload(uctx, data, storage.UploadOptions{
		Folder:   folderPrefix + strconv.FormatInt(user.TelegramID, 10),
		MimeType: mimeType,
	})
	cancel()
	if err != nil {
		s.logger.Error(ctx, "photo upload failed", "user_id", user.ID, "provider", s.storage.Name(), "error", err)
		if errors.Is(err, common.ErrStorageProvider) {
			return nil, common.Errorf(err, "Failed to upload photo")
		}
		return nil, common.Errorf(fmt.Errorf("%w: %v", common.ErrStorageProvider, err), "Failed to upload photo")
	}

	if err := ctx.Err(); err != nil {
		s.compensate(ctx, res.CloudID)
		return nil, err
	}

	var item *models.Media
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		g, err := s.repomanager.Galleries(tx).CreateIfAbsent(ctx, &models.Gallery{
			UserID:        user.ID,
			GuestName:     user.DisplayName(),
			CoverPhotoURL: res.ThumbnailURL,
		})
		if err != nil {
			return err
		}

		item, err = s.repomanager.Media(tx).Create(ctx, &models.Media{
			GalleryID:    g.ID,
			UserID:       user.ID,
			Type:         models.MediaPhoto,
			CloudID:      res.CloudID,
			URL:          res.URL,
			ThumbnailURL: res.ThumbnailURL,
			Width:        res.Width,
			Height:       res.Height,
		})
		if err != nil {
			return err
		}

		return s.repomanager.Galleries(tx).AdjustPhotoCount(ctx, g.ID, 1)
	})
	if err != nil {
		s.compensate(ctx, res.CloudID)
		return nil, fmt.Errorf("%w: save photo: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "photo uploaded", "gallery_id", item.GalleryID, "media_id", item.ID, "user_id", user.ID)
	s.publish(ctx, events.KeyPhotoUploaded, events.PhotoUploaded{
		MediaID: item.ID, GalleryID: item.GalleryID, UserID: user.ID, URL: item.URL,
	})
	return item, nil
}

// compensate removes a remote object whose database record was never
// written. It outlives the request context.
func (s *GalleryService) compensate(ctx context.Context, cloudID string) {
	dctx, cancel := s.storageContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.storage.Delete(dctx, cloudID, storage.DeleteOptions{Type: models.MediaPhoto}); err != nil {
		s.logger.Warn(ctx, "orphaned remote object", "cloud_id", cloudID, "error", err)
	}
}

// ListGalleries returns every gallery, most recently changed first, with
// up to PreviewCount thumbnails of its newest photos.
func (s *GalleryService) ListGalleries(ctx context.Context) ([]*models.GalleryPreview, error) {
	list, err := s.repomanager.Galleries(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list galleries: %v", common.ErrorInternal, err)
	}
	previews, err := s.repomanager.Media(s.db).ListPreviews(ctx, models.MediaPhoto, PreviewCount)
	if err != nil {
		return nil, fmt.Errorf("%w: list previews: %v", common.ErrorInternal, err)
	}

	out := make([]*models.GalleryPreview, 0, len(list))
	for _, g := range list {
		p := previews[g.ID]
		if p == nil {
			p = []string{}
		}
		out = append(out, &models.GalleryPreview{Gallery: *g, Previews: p})
	}
	return out, nil
}

// GetGallery returns a gallery and all of its photos, newest first.
func (s *GalleryService) GetGallery(ctx context.Context, galleryID string) (*GalleryDetail, error) {
	id, err := common.ParseID(galleryID)
	if err != nil {
		return nil, common.Errorf(common.ErrInvalidID, "Invalid gallery ID")
	}
	g, err := s.repomanager.Galleries(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "Gallery not found")
		}
		return nil, fmt.Errorf("%w: load gallery: %v", common.ErrorInternal, err)
	}
	items, err := s.repomanager.Media(s.db).ListByGallery(ctx, id, models.MediaPhoto)
	if err != nil {
		return nil, fmt.Errorf("%w: list media: %v", common.ErrorInternal, err)
	}
	return &GalleryDetail{Gallery: g, Media: items}, nil
}

// DeleteMedia removes a photo. Only its owner or an admin may do so. The
// remote object goes first; if that fails the record stays.
func (s *GalleryService) DeleteMedia(ctx context.Context, actor *auth.Claims, mediaID string) error {
	id, err := common.ParseID(mediaID)
	if err != nil {
		return common.Errorf(common.ErrInvalidID, "Invalid media ID")
	}

	item, err := s.repomanager.Media(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Errorf(common.ErrorNotFound, "Photo not found")
		}
		return fmt.Errorf("%w: load media: %v", common.ErrorInternal, err)
	}
	if actor == nil || (item.UserID != actor.UserID && !actor.IsAdmin()) {
		return common.Errorf(common.ErrForbidden, "Not allowed")
	}

	dctx, cancel := s.storageContext(ctx)
	err = s.storage.Delete(dctx, item.CloudID, storage.DeleteOptions{Type: item.Type})
	cancel()
	if err != nil {
		s.logger.Error(ctx, "remote delete failed", "media_id", item.ID, "provider", s.storage.Name(), "error", err)
		if errors.Is(err, common.ErrStorageProvider) {
			return common.Errorf(err, "Failed to delete photo")
		}
		return common.Errorf(fmt.Errorf("%w: %v", common.ErrStorageProvider, err), "Failed to delete photo")
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Media(tx).Delete(ctx, item.ID); err != nil {
			return err
		}
		if err := s.repomanager.Galleries(tx).AdjustPhotoCount(ctx, item.GalleryID, -1); err != nil {
			return err
		}
		g, err := s.repomanager.Galleries(tx).GetByID(ctx, item.GalleryID)
		if err != nil {
			return err
		}
		if g.CoverPhotoURL != "" && g.CoverPhotoURL == item.ThumbnailURL {
			return s.repomanager.Galleries(tx).ResetCover(ctx, g.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Errorf(common.ErrorNotFound, "Photo not found")
		}
		return fmt.Errorf("%w: delete media: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "media deleted", "media_id", item.ID, "gallery_id", item.GalleryID, "by", actor.UserID)
	s.publish(ctx, events.KeyMediaDeleted, events.MediaDeleted{
		MediaID: item.ID, GalleryID: item.GalleryID, DeletedBy: actor.UserID,
	})
	return nil
}

func (s *GalleryService) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.logger.Warn(ctx, "event publish failed", "key", key, "error", err)
	}
}
