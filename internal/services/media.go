package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fathima-sithara/moms/internal/models"
	"github.com/fathima-sithara/moms/internal/repository"
	"github.com/fathima-sithara/moms/internal/session"
	"github.com/fathima-sithara/moms/internal/storage"
	"go.uber.org/zap"
)

const thumbnailWidth = 320

type MediaKind string

const (
	MediaPayment MediaKind = "payment"
	MediaChat    MediaKind = "chat"
)

type Upload struct {
	Kind        MediaKind
	HouseID     string
	Filename    string
	ContentType string
	Data        []byte
}

type MediaService struct {
	store      storage.BlobStore
	houses     repository.HouseRepository
	maxBytes   int64
	presignTTL time.Duration
	clock      Clock
	log        *zap.Logger
}

func NewMediaService(store storage.BlobStore, houses repository.HouseRepository, maxBytes int64, presignTTL time.Duration, clock Clock, log *zap.Logger) *MediaService {
	if clock == nil {
		clock = SystemClock
	}
	return &MediaService{
		store:      store,
		houses:     houses,
		maxBytes:   maxBytes,
		presignTTL: presignTTL,
		clock:      clock,
		log:        log,
	}
}

// cleanName keeps the base name with anything outside [A-Za-z0-9._-]
// replaced by an underscore.
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "image"
	}
	return out
}

func thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *MediaService) chatHouse(ctx context.Context, c *caller, houseID string) (string, error) {
	if houseID == "" {
		houseID = c.HouseID
	}
	if houseID == "" {
		return "", invalid("houseId is required for chat images")
	}
	if c.memberOf(houseID) {
		return houseID, nil
	}
	h, err := s.houses.FindByID(ctx, houseID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load house: %w", err)
	}
	if !c.staffOf(h.AgencyID) {
		return "", ErrForbidden
	}
	return h.ID, nil
}

// UploadImage stores a payment screenshot or chat image. Chat images also get
// a JPEG thumbnail.
func (s *MediaService) UploadImage(ctx context.Context, sess *session.Session, in Upload) (*models.UploadedImage, error) {
	c, err := callerOf(sess)
	if err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, invalid("file is empty")
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return nil, invalid(fmt.Sprintf("images are limited to %d bytes", s.maxBytes))
	}
	if !strings.HasPrefix(in.ContentType, "image/") || !strings.HasPrefix(http.DetectContentType(in.Data), "image/") {
		return nil, invalid("only image uploads are accepted")
	}

	stamp := s.clock.Now().UnixMilli()
	name := cleanName(in.Filename)
	var key string
	switch in.Kind {
	case MediaPayment:
		key = fmt.Sprintf("payments/%s/%d_%s", c.ID, stamp, name)
	case MediaChat:
		houseID, err := s.chatHouse(ctx, c, in.HouseID)
		if err != nil {
			return nil, err
		}
		key = fmt.Sprintf("chat/%s/%d_%s", houseID, stamp, name)
	default:
		return nil, invalid("kind must be payment or chat")
	}

	out := &models.UploadedImage{Key: key, ContentType: in.ContentType, Size: int64(len(in.Data))}
	if out.URL, err = s.put(ctx, key, in.ContentType, in.Data); err != nil {
		return nil, err
	}

	if in.Kind == MediaChat {
		thumb, err := thumbnail(in.Data)
		if err != nil {
			s.log.Warn("thumbnail failed", zap.String("key", key), zap.Error(err))
			return out, nil
		}
		thumbKey := strings.TrimSuffix(key, path.Ext(key)) + "_thumb.jpg"
		thumbURL, err := s.put(ctx, thumbKey, "image/jpeg", thumb)
		if err != nil {
			s.log.Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
			return out, nil
		}
		out.ThumbnailKey, out.ThumbnailURL = thumbKey, thumbURL
	}
	return out, nil
}

// put stores data and returns its public URL, or a presigned GET when the
// bucket is private.
func (s *MediaService) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	u, err := s.store.Upload(ctx, key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if u != "" {
		return u, nil
	}
	u, err = s.store.PresignURL(ctx, key, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u, nil
}
