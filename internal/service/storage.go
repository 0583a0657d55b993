package service

import (
	"context"
	"io"
)

// FileStorage abstracts the object storage backend the relay forwards to.
// Implementations return the provider-assigned object ID and a shareable URL.
type FileStorage interface {
	Upload(ctx context.Context, name, mimeType string, reader io.Reader) (fileID, fileURL string, err error)
}
