package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"
	"time"

	"shopcatalog/internal/common"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

// Images are bounded to this edge length on both axes; smaller images are
// stored as-is (never upscaled).
const maxImageDimension = 3200

const assetPrefix = "uploads/"

// AssetService owns the image asset lifecycle: normalize and persist on
// Save, stream on Load, best-effort removal on Delete. The reference path
// returned by Save is stored verbatim by callers and passed back unchanged
// to Load/Delete.
type AssetService interface {
	// Save normalizes the image and writes it to object storage under a
	// caller-supplied, timestamp-qualified name. On failure no reference is
	// returned and nothing should be recorded as pointing at the upload.
	// A crash after Save but before the owning record commits can leave an
	// unreferenced object behind; that leak is accepted, a stored reference
	// to a missing object is not.
	Save(ctx context.Context, suggestedName string, reader io.Reader) (string, error)
	Load(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
	PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error)
}

type assetService struct {
	storage       ObjectStorage
	bucket        string
	resizeTimeout time.Duration
	logger        zerolog.Logger
}

func NewAssetService(storage ObjectStorage, bucket string, logger zerolog.Logger) AssetService {
	return &assetService{
		storage:       storage,
		bucket:        bucket,
		resizeTimeout: 10 * time.Second,
		logger:        logger.With().Str("component", "assets").Logger(),
	}
}

type normalized struct {
	data        []byte
	contentType string
	err         error
}

func (s *assetService) Save(ctx context.Context, suggestedName string, reader io.Reader) (string, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", common.ErrProcessing)
	}

	// Decode and resize run off-request under a deadline: the input is
	// untrusted and a pathological image must not hold the request forever.
	resizeCtx, cancel := context.WithTimeout(ctx, s.resizeTimeout)
	defer cancel()

	ch := make(chan normalized, 1)
	go func() { ch <- normalizeImage(raw) }()

	var norm normalized
	select {
	case <-resizeCtx.Done():
		return "", fmt.Errorf("normalize image: %w", common.ErrTimeout)
	case norm = <-ch:
	}
	if norm.err != nil {
		return "", fmt.Errorf("normalize image: %v: %w", norm.err, common.ErrProcessing)
	}

	if err := s.storage.EnsureBucketExists(ctx, s.bucket); err != nil {
		return "", fmt.Errorf("ensure bucket: %v: %w", err, common.ErrProcessing)
	}

	ref := assetPrefix + sanitizeObjectName(suggestedName)
	size := int64(len(norm.data))
	if err := s.storage.UploadObject(ctx, s.bucket, ref, bytes.NewReader(norm.data), size, norm.contentType); err != nil {
		return "", fmt.Errorf("store image: %v: %w", err, common.ErrProcessing)
	}

	s.logger.Debug().Str("ref", ref).Int64("bytes", size).Msg("asset stored")
	return ref, nil
}

func (s *assetService) Load(ctx context.Context, ref string) (io.ReadCloser, error) {
	obj, err := s.storage.GetObject(ctx, s.bucket, ref)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", ref, common.ErrNotFound)
	}
	return obj, nil
}

// Delete removes the stored object. Callers treat failure as non-fatal: a
// missing or undeletable file never blocks cleanup of the owning record.
func (s *assetService) Delete(ctx context.Context, ref string) error {
	return s.storage.DeleteObject(ctx, s.bucket, ref)
}

func (s *assetService) PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	return s.storage.GetPresignedURL(ctx, s.bucket, ref, expiry)
}

// normalizeImage decodes raw bytes and bounds the dimensions to
// maxImageDimension on both axes, preserving aspect ratio and never
// enlarging. The image is re-encoded in its source format.
func normalizeImage(raw []byte) normalized {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return normalized{err: fmt.Errorf("decode: %w", err)}
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxImageDimension || bounds.Dy() > maxImageDimension {
		// Thumbnail scales down to fit inside the box and leaves smaller
		// images untouched.
		img = resize.Thumbnail(maxImageDimension, maxImageDimension, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		return normalized{err: fmt.Errorf("unsupported format %q", format)}
	}
	if err != nil {
		return normalized{err: fmt.Errorf("encode %s: %w", format, err)}
	}

	return normalized{data: buf.Bytes(), contentType: "image/" + format}
}

// sanitizeObjectName strips any path components and characters that do not
// belong in an object key.
func sanitizeObjectName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
