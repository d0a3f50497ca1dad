package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrNotConfigured is returned when no storage credentials were provided.
var ErrNotConfigured = errors.New("file storage is not configured")

// FileStorage stores session banners, avatars and study material files.
type FileStorage interface {
	// UploadImage uploads an image converted to webp and returns its secure URL.
	UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// UploadFile uploads any document (pdf, slides, archives) as a raw asset.
	UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// Delete removes a previously uploaded asset by its URL.
	Delete(ctx context.Context, fileURL string) error
}

type cloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage builds the Cloudinary implementation from a
// CLOUDINARY_URL style connection string.
func NewCloudinaryStorage(cloudinaryURL string) (FileStorage, error) {
	if cloudinaryURL == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &cloudinaryStorage{cld: cld}, nil
}

func (s *cloudinaryStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	params := s.params(folder, fileName)
	params.ResourceType = "image"
	params.Format = "webp"
	params.Transformation = "q_auto"
	return s.upload(ctx, r, params)
}

func (s *cloudinaryStorage) UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	params := s.params(folder, fileName)
	if isImage(fileName) {
		params.ResourceType = "image"
	} else {
		params.ResourceType = "raw"
		// raw assets keep their extension as part of the public id
		params.PublicID += strings.ToLower(filepath.Ext(fileName))
	}
	return s.upload(ctx, r, params)
}

func (s *cloudinaryStorage) params(folder, fileName string) uploader.UploadParams {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	return uploader.UploadParams{
		Folder:         folder,
		PublicID:       fmt.Sprintf("%d-%s", time.Now().UnixNano(), sanitizeName(base)),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
	}
}

func (s *cloudinaryStorage) upload(ctx context.Context, r io.Reader, params uploader.UploadParams) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload succeeded but secure URL is empty")
	}
	return resp.SecureURL, nil
}

func (s *cloudinaryStorage) Delete(ctx context.Context, fileURL string) error {
	resourceType, publicID := parseAssetURL(fileURL)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from URL: %s", fileURL)
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset from cloudinary: %w", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy returned result: %s", resp.Result)
	}
	return nil
}

// parseAssetURL splits a delivery URL such as
// https://res.cloudinary.com/demo/raw/upload/v17/materials/123-notes.pdf
// into its resource type and public id. Image public ids drop the extension.
func parseAssetURL(fileURL string) (resourceType, publicID string) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	upload := -1
	for i, p := range parts {
		if p == "upload" {
			upload = i
			break
		}
	}
	if upload < 1 || upload+1 >= len(parts) {
		return "", ""
	}

	resourceType = parts[upload-1]
	rest := parts[upload+1:]
	if len(rest) > 1 && isVersion(rest[0]) {
		rest = rest[1:]
	}

	publicID = strings.Join(rest, "/")
	if resourceType != "raw" {
		publicID = strings.TrimSuffix(publicID, filepath.Ext(publicID))
	}
	return resourceType, publicID
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isImage(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif", ".webp":
		return true
	}
	return false
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
