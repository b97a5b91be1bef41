package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

// CloudinarySettings are the Cloudinary account credentials.
type CloudinarySettings struct {
	CloudName string
	APIKey    string
	APISecret string
}

// cloudinaryAPI is the part of the Cloudinary SDK the provider uses.
type cloudinaryAPI interface {
	upload(ctx context.Context, data []byte, folder string) (*uploader.UploadResult, error)
	destroy(ctx context.Context, publicID, resourceType string) (*uploader.DestroyResult, error)
	imageURL(publicID, transformation string) (string, error)
}

type cloudinaryClient struct {
	cld *cloudinary.Cloudinary
}

func (c *cloudinaryClient) upload(ctx context.Context, data []byte, folder string) (*uploader.UploadResult, error) {
	return c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		ResourceType: "image",
	})
}

func (c *cloudinaryClient) destroy(ctx context.Context, publicID, resourceType string) (*uploader.DestroyResult, error) {
	return c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
}

func (c *cloudinaryClient) imageURL(publicID, transformation string) (string, error) {
	img, err := c.cld.Image(publicID)
	if err != nil {
		return "", err
	}
	img.Transformation = transformation
	return img.String()
}

// CloudinaryProvider stores photos on Cloudinary, which also renders the
// thumbnails.
type CloudinaryProvider struct {
	api cloudinaryAPI
}

// newCloudinary is a seam for tests.
var newCloudinary = func(s CloudinarySettings) (cloudinaryAPI, error) {
	cld, err := cloudinary.NewFromParams(s.CloudName, s.APIKey, s.APISecret)
	if err != nil {
		return nil, err
	}
	cld.Config.URL.Secure = true
	return &cloudinaryClient{cld: cld}, nil
}

func NewCloudinaryProvider(s CloudinarySettings) (*CloudinaryProvider, error) {
	if s.CloudName == "" || s.APIKey == "" || s.APISecret == "" {
		return nil, fmt.Errorf("%w: cloudinary credentials are incomplete", common.ErrConfiguration)
	}
	api, err := newCloudinary(s)
	if err != nil {
		return nil, fmt.Errorf("%w: cloudinary: %v", common.ErrConfiguration, err)
	}
	return &CloudinaryProvider{api: api}, nil
}

func (p *CloudinaryProvider) Name() string { return string(KindCloudinary) }

func (p *CloudinaryProvider) Upload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	res, err := p.api.upload(ctx, data, opts.Folder)
	if err != nil {
		return nil, providerError(p.Name(), "upload", err)
	}
	if res == nil {
		return nil, providerError(p.Name(), "upload", errors.New("empty response"))
	}
	if res.Error.Message != "" {
		return nil, providerError(p.Name(), "upload", errors.New(res.Error.Message))
	}

	thumb, err := p.Thumbnail(res.PublicID, DefaultThumbnail)
	if err != nil {
		return nil, err
	}

	out := &UploadResult{
		CloudID:      res.PublicID,
		URL:          res.SecureURL,
		ThumbnailURL: thumb,
	}
	if res.Width > 0 && res.Height > 0 {
		w, h := res.Width, res.Height
		out.Width, out.Height = &w, &h
	}
	return out, nil
}

func (p *CloudinaryProvider) Delete(ctx context.Context, cloudID string, opts DeleteOptions) error {
	resourceType := "image"
	if opts.Type == models.MediaVideo {
		resourceType = "video"
	}

	res, err := p.api.destroy(ctx, cloudID, resourceType)
	if err != nil {
		return providerError(p.Name(), "delete", err)
	}
	if res != nil && res.Error.Message != "" {
		return providerError(p.Name(), "delete", errors.New(res.Error.Message))
	}
	// "not found" means the object is already gone
	return nil
}

// Thumbnail returns a delivery URL that crops to the box and lets
// Cloudinary pick quality, served as WebP.
func (p *CloudinaryProvider) Thumbnail(cloudID string, opts ThumbnailOptions) (string, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultThumbnail
	}
	t := fmt.Sprintf("c_fill,w_%d,h_%d,q_auto,f_webp", opts.Width, opts.Height)
	u, err := p.api.imageURL(cloudID, t)
	if err != nil {
		return "", providerError(p.Name(), "thumbnail", err)
	}
	return u, nil
}
