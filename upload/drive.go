// drive.go - Google Drive implementation of Uploader.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Drive uploads images to a Google Drive folder and returns the file's
// web view link as the reference.
type Drive struct {
	svc      *drive.Service
	folderID string
	timeout  time.Duration
}

func NewDrive(ctx context.Context, ts oauth2.TokenSource, folderID string) (*Drive, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Drive{svc: svc, folderID: folderID, timeout: 30 * time.Second}, nil
}

func (d *Drive) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// Prefix with a UUID so repeated uploads of the same filename never
	// shadow each other.
	meta := &drive.File{
		Name: uuid.NewString() + "-" + filename,
	}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}

	created, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}
	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return created.Id, nil
}
