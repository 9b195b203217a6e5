package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/sirupsen/logrus"
)

// CloudinaryFileStore uploads documents as raw Cloudinary assets.
type CloudinaryFileStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *logrus.Logger
}

func NewCloudinaryFileStore(cloudName, apiKey, apiSecret, folder string, logger *logrus.Logger) (*CloudinaryFileStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryFileStore{cld: cld, folder: folder, logger: logger}, nil
}

func (s *CloudinaryFileStore) Save(ctx context.Context, name string, r io.Reader) (*StoredFile, error) {
	// Raw assets are delivered under their public id as-is, so the extension
	// stays in it for the URL to carry the file type.
	publicID := path.Base(name)

	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       s.folder,
		ResourceType: "raw",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload rejected: %s", result.Error.Message)
	}

	return &StoredFile{URL: result.SecureURL, Key: result.PublicID}, nil
}

func (s *CloudinaryFileStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     key,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		s.logger.WithFields(logrus.Fields{
			"key":    key,
			"result": result.Result,
		}).Warn("Unexpected Cloudinary destroy result")
	}
	return nil
}
