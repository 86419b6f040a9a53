package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"startup-apply/internal/policy"
	"startup-apply/internal/storage"
)

const MaxUploadSize = 10 << 20

var allowedMediaTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/gif":       true,
	"image/svg+xml":   true,
	"application/pdf": true,
	"video/mp4":       true,
}

// MediaObject es la referencia que el cliente guarda en logo, bannerImage, imageUrl o pitchDeck.
type MediaObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// MediaService sube archivos al bucket. Con store nil todas las subidas fallan con
// ErrMediaUnavailable.
type MediaService struct {
	logger *zap.Logger
	store  storage.ObjectStorage
}

func NewMediaService(logger *zap.Logger, store storage.ObjectStorage) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{logger: logger, store: store}
}

// Enabled indica si hay un backend de objetos configurado.
func (s *MediaService) Enabled() bool {
	return s != nil && s.store != nil
}

func (s *MediaService) Upload(ctx context.Context, actor policy.Actor, filename, contentType string, size int64, r io.Reader) (MediaObject, error) {
	if !s.Enabled() {
		return MediaObject{}, ErrMediaUnavailable
	}
	if actor.Anonymous() {
		return MediaObject{}, ErrForbidden
	}
	if size <= 0 || size > MaxUploadSize {
		return MediaObject{}, fmt.Errorf("%w: file size must be between 1 byte and %d bytes", ErrValidation, MaxUploadSize)
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedMediaTypes[contentType] {
		return MediaObject{}, fmt.Errorf("%w: unsupported content type %q", ErrValidation, contentType)
	}

	ext := strings.ToLower(path.Ext(filename))
	key := path.Join("uploads", actor.UserID, uuid.NewString()+ext)
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		s.logger.Error("media upload failed", zap.Error(err), zap.String("key", key))
		return MediaObject{}, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}
	return MediaObject{Key: key, URL: s.store.URL(key)}, nil
}
