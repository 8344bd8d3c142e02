/*
Package upload is the blob upload collaborator.

Given binary image content it returns an opaque reference string to embed
in a Lot or Sale row. Uploads are best-effort: record creation proceeds
with an empty reference when an upload fails.

Two implementations:
  - Inline: encodes the image as a data URL, no external calls
  - Drive:  uploads to a Google Drive folder (drive.go)
*/
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Uploader stores image content and returns an opaque reference.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Inline encodes content as a base64 data URL instead of uploading it
// anywhere. Useful without Drive access; the reference is self-contained.
type Inline struct{}

func (Inline) Upload(_ context.Context, _ string, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}
