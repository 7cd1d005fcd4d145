package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"whispr/internal/storage"
	whispr_errors "whispr/pkg/errors"

	"github.com/google/uuid"
)

const maxImageBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UploadService struct {
	storage *storage.Client
}

type PresignInput struct {
	UploaderID  uuid.UUID
	FileName    string
	ContentType string
	FileSize    int64
}

type PresignResult struct {
	UploadURL string            `json:"uploadUrl"`
	FileURL   string            `json:"fileUrl"`
	Headers   map[string]string `json:"headers"`
}

func NewUploadService(storage *storage.Client) *UploadService {
	return &UploadService{storage: storage}
}

// CreatePresignedUpload resolves an image upload to a durable URL the
// client then attaches to a message.
func (s *UploadService) CreatePresignedUpload(ctx context.Context, input PresignInput) (PresignResult, error) {
	if s.storage == nil {
		return PresignResult{}, whispr_errors.ErrInvalidInput
	}
	if input.UploaderID == uuid.Nil || input.FileName == "" || !allowedImageTypes[input.ContentType] {
		return PresignResult{}, whispr_errors.ErrInvalidInput
	}
	if input.FileSize <= 0 || input.FileSize > maxImageBytes {
		return PresignResult{}, whispr_errors.ErrTooLarge
	}

	ext := strings.ToLower(path.Ext(input.FileName))
	key := fmt.Sprintf("uploads/%s/%d-%s%s", input.UploaderID, time.Now().Unix(), uuid.New().String()[:8], ext)

	uploadURL, headers, err := s.storage.PresignPut(ctx, key, input.ContentType, input.FileSize)
	if err != nil {
		return PresignResult{}, err
	}

	return PresignResult{
		UploadURL: uploadURL,
		FileURL:   s.storage.FileURL(key),
		Headers:   headers,
	}, nil
}
