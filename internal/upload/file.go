package upload

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// File describes the locally selected recording. The payload stays on disk
// and is streamed at upload time.
type File struct {
	Path        string
	Name        string
	ContentType string
	SizeBytes   int64
}

// NewFile stats a local recording and derives its upload metadata.
func NewFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read media file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a media file", path)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &File{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: contentType,
		SizeBytes:   info.Size(),
	}, nil
}
