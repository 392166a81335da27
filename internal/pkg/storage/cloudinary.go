package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
)

const (
	// MaxUploadFiles caps how many images one upload request may carry.
	MaxUploadFiles = 8
	// MaxBulkDelete caps how many public ids one delete request may carry.
	MaxBulkDelete = 50
)

var (
	ErrTooManyFiles     = errors.New("too many files in one upload")
	ErrTooManyDeletes   = errors.New("too many ids in one delete")
	ErrUnsupportedMedia = errors.New("only image files are accepted")
)

// UploadInput is one file to push to the image CDN.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	SizeBytes   int64
}

// UploadedImage describes a stored asset.
type UploadedImage struct {
	Name       string
	SecureURL  string
	PublicID   string
	FileType   string
	FileSizeKB float64
}

// DeleteResult reports the per-id outcome of a bulk delete.
type DeleteResult struct {
	PublicID string `json:"public_id"`
	Deleted  bool   `json:"deleted"`
	Error    string `json:"error,omitempty"`
}

// ImageStore is the image CDN surface the controllers depend on.
type ImageStore interface {
	UploadImages(ctx context.Context, userID, listingID uint, files []UploadInput) ([]UploadedImage, error)
	DeleteImage(ctx context.Context, publicID string) error
	DeleteImages(ctx context.Context, publicIDs []string) ([]DeleteResult, error)
}

type cloudinaryStore struct {
	client *cld.Cloudinary
	env    string
}

// NewCloudinaryStore builds the production image store from settings.
func NewCloudinaryStore(settings *config.Settings) (ImageStore, error) {
	client, err := cld.NewFromParams(settings.CloudinaryCloudName, settings.CloudinaryAPIKey, settings.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &cloudinaryStore{client: client, env: settings.CloudinaryEnv}, nil
}

// Folder returns the asset folder for a listing: {env}/{user_id}/{listing_id}.
func Folder(env string, userID, listingID uint) string {
	return fmt.Sprintf("%s/%d/%d", env, userID, listingID)
}

func (s *cloudinaryStore) UploadImages(ctx context.Context, userID, listingID uint, files []UploadInput) ([]UploadedImage, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > MaxUploadFiles {
		return nil, ErrTooManyFiles
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, ErrUnsupportedMedia
		}
	}

	folder := Folder(s.env, userID, listingID)
	uploaded := make([]UploadedImage, 0, len(files))
	for _, f := range files {
		publicID := uuid.New().String()
		res, err := s.client.Upload.Upload(ctx, f.Reader, uploader.UploadParams{
			Folder:       folder,
			PublicID:     publicID,
			ResourceType: "image",
		})
		if err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", f.Filename, err)
		}
		uploaded = append(uploaded, UploadedImage{
			Name:       baseName(f.Filename),
			SecureURL:  res.SecureURL,
			PublicID:   res.PublicID,
			FileType:   f.ContentType,
			FileSizeKB: float64(f.SizeBytes) / 1024,
		})
	}
	return uploaded, nil
}

func (s *cloudinaryStore) DeleteImage(ctx context.Context, publicID string) error {
	res, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("destroy %s: %s", publicID, res.Result)
	}
	return nil
}

func (s *cloudinaryStore) DeleteImages(ctx context.Context, publicIDs []string) ([]DeleteResult, error) {
	if len(publicIDs) > MaxBulkDelete {
		return nil, ErrTooManyDeletes
	}

	results := make([]DeleteResult, 0, len(publicIDs))
	for _, id := range publicIDs {
		r := DeleteResult{PublicID: id, Deleted: true}
		if err := s.DeleteImage(ctx, id); err != nil {
			r.Deleted = false
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results, nil
}

func baseName(filename string) string {
	name := path.Base(filename)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
