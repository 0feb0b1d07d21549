package storage

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// ResumeObjectName builds a date-partitioned object key for an uploaded
// resume, keeping the original extension.
func ResumeObjectName(originalName string, at time.Time) string {
	ext := filepath.Ext(originalName)
	return "resumes/" + at.UTC().Format("2006/01/02") + "/" + uuid.NewString() + ext
}
