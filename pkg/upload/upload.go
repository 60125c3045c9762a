// Package upload stores declaration photos and returns their public URLs.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const logPrefix = "upload:upload"

// DefaultFolder is the remote folder declaration photos are stored in.
const DefaultFolder = "driver_registrations"

// ErrNotConfigured is returned by uploads when no storage credentials were given.
var ErrNotConfigured = errors.New("upload: photo storage not configured")

// Uploader stores one file and returns its HTTPS URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// CloudinaryOpts holds the Cloudinary account credentials.
type CloudinaryOpts struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports whether all credentials are set.
func (o CloudinaryOpts) Configured() bool {
	return o.CloudName != "" && o.APIKey != "" && o.APISecret != ""
}

// CloudinaryUploader uploads files to a Cloudinary folder.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader creates a CloudinaryUploader from opts.
func NewCloudinaryUploader(opts CloudinaryOpts) (*CloudinaryUploader, error) {
	if !opts.Configured() {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(opts.CloudName, opts.APIKey, opts.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create cloudinary client: %w", logPrefix, err)
	}
	folder := opts.Folder
	if folder == "" {
		folder = DefaultFolder
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// Upload streams r to Cloudinary and returns the secure URL of the stored asset.
func (u *CloudinaryUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: u.folder})
	if err != nil {
		return "", fmt.Errorf("%s - upload %s: %w", logPrefix, name, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("%s - upload %s: %s", logPrefix, name, resp.Error.Message)
	}
	slog.Debug(fmt.Sprintf("%s - Uploaded %s to %s", logPrefix, name, resp.SecureURL))
	return resp.SecureURL, nil
}

// DisabledUploader rejects every upload with ErrNotConfigured.
type DisabledUploader struct{}

// Upload always fails.
func (DisabledUploader) Upload(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrNotConfigured
}

// New returns a CloudinaryUploader when opts are complete, otherwise a DisabledUploader.
func New(opts CloudinaryOpts) (Uploader, error) {
	if !opts.Configured() {
		slog.Warn(fmt.Sprintf("%s - Cloudinary credentials not set; declarations with photos will fail", logPrefix))
		return DisabledUploader{}, nil
	}
	return NewCloudinaryUploader(opts)
}
