// Package storage hides the remote media backend behind Provider. The
// backend is chosen once at startup from configuration.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

// UploadOptions describe where and what is uploaded.
type UploadOptions struct {
	Folder   string
	MimeType string
}

// UploadResult is what a backend reports about a stored object.
// Width and Height are nil when the backend could not tell.
type UploadResult struct {
	CloudID      string
	URL          string
	ThumbnailURL string
	Width        *int
	Height       *int
}

// DeleteOptions carries the media type, which some backends need to
// address the object.
type DeleteOptions struct {
	Type models.MediaType
}

// ThumbnailOptions is the requested thumbnail box.
type ThumbnailOptions struct {
	Width  int
	Height int
}

// DefaultThumbnail is the gallery thumbnail size.
var DefaultThumbnail = ThumbnailOptions{Width: 400, Height: 400}

// Provider stores and removes media objects.
type Provider interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error)
	Delete(ctx context.Context, cloudID string, opts DeleteOptions) error
	Thumbnail(cloudID string, opts ThumbnailOptions) (string, error)
	Name() string
}

// Kind names a Provider implementation.
type Kind string

const (
	KindCloudinary Kind = "cloudinary"
	KindS3         Kind = "s3"
)

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCloudinary, KindS3:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown storage provider %q", common.ErrConfiguration, s)
	}
}

// Settings holds the credentials of every backend; only the selected one
// is read.
type Settings struct {
	Cloudinary CloudinarySettings
	S3         S3Settings
}

// New builds the Provider for kind.
func New(ctx context.Context, kind Kind, s Settings) (Provider, error) {
	switch kind {
	case KindCloudinary:
		return NewCloudinaryProvider(s.Cloudinary)
	case KindS3:
		return NewS3Provider(ctx, s.S3)
	default:
		return nil, fmt.Errorf("%w: unknown storage provider %q", common.ErrConfiguration, kind)
	}
}

func providerError(name, op string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", common.ErrStorageProvider, name, op, err)
}
