package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key  string
	ETag string
}

// FileUploader кладет объект в хранилище. Архив только дописывается,
// поэтому удаления нет.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
}
