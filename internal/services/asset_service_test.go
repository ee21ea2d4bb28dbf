package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"shopcatalog/internal/common"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage is an in-memory ObjectStorage for exercising the asset
// pipeline end to end.
type memStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
	uploadErr    error
	deleteErr    error
}

func newMemStorage() *memStorage {
	return &memStorage{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (s *memStorage) UploadObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[objectName] = data
	s.contentTypes[objectName] = contentType
	return nil
}

func (s *memStorage) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	data, ok := s.objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s does not exist", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) DeleteObject(ctx context.Context, bucketName, objectName string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, objectName)
	delete(s.contentTypes, objectName)
	return nil
}

func (s *memStorage) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	if _, ok := s.objects[objectName]; !ok {
		return "", fmt.Errorf("object %s does not exist", objectName)
	}
	return "https://storage.local/" + bucketName + "/" + objectName, nil
}

func (s *memStorage) EnsureBucketExists(ctx context.Context, bucketName string) error {
	return nil
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 7 {
		for y := 0; y < height; y += 7 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func decodeStored(t *testing.T, storage *memStorage, ref string) image.Image {
	t.Helper()
	data, ok := storage.objects[ref]
	require.True(t, ok, "object %s not stored", ref)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestAssetSave_OversizedImageScaledToFit(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodePNG(t, 3300, 1650)

	ref, err := svc.Save(context.Background(), "category-1-banner.png", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "uploads/category-1-banner.png", ref)
	assert.Equal(t, "image/png", storage.contentTypes[ref])

	bounds := decodeStored(t, storage, ref).Bounds()
	assert.Equal(t, 3200, bounds.Dx())
	assert.Equal(t, 1600, bounds.Dy())
}

func TestAssetSave_TallImagePreservesAspect(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodePNG(t, 1600, 6400)

	ref, err := svc.Save(context.Background(), "product-1-tall.png", bytes.NewReader(raw))
	require.NoError(t, err)

	bounds := decodeStored(t, storage, ref).Bounds()
	assert.Equal(t, 800, bounds.Dx())
	assert.Equal(t, 3200, bounds.Dy())
}

func TestAssetSave_SmallImageNeverEnlarged(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodeJPEG(t, 640, 480)

	ref, err := svc.Save(context.Background(), "product-1-thumb.jpg", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", storage.contentTypes[ref])

	bounds := decodeStored(t, storage, ref).Bounds()
	assert.Equal(t, 640, bounds.Dx())
	assert.Equal(t, 480, bounds.Dy())
}

func TestAssetSave_NameSanitized(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodeJPEG(t, 10, 10)

	ref, err := svc.Save(context.Background(), "../../etc/my photo.jpg", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "uploads/my_photo.jpg", ref)
}

func TestAssetSave_UndecodableInputRejected(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	_, err := svc.Save(context.Background(), "product-1-x.jpg", strings.NewReader("definitely not an image"))

	assert.ErrorIs(t, err, common.ErrProcessing)
	assert.Empty(t, storage.objects)
}

func TestAssetSave_UploadFailureReturnsNoRef(t *testing.T) {
	storage := newMemStorage()
	storage.uploadErr = errors.New("bucket quota exceeded")
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodeJPEG(t, 10, 10)

	ref, err := svc.Save(context.Background(), "product-1-x.jpg", bytes.NewReader(raw))

	assert.ErrorIs(t, err, common.ErrProcessing)
	assert.Empty(t, ref)
}

func TestAssetLoad_RoundTrip(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodeJPEG(t, 20, 20)
	ref, err := svc.Save(context.Background(), "product-1-x.jpg", bytes.NewReader(raw))
	require.NoError(t, err)

	rc, err := svc.Load(context.Background(), ref)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestAssetLoad_MissingObject(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	_, err := svc.Load(context.Background(), "uploads/gone.jpg")

	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAssetDelete_RemovesObject(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodeJPEG(t, 10, 10)
	ref, err := svc.Save(context.Background(), "product-1-x.jpg", bytes.NewReader(raw))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ref))
	assert.Empty(t, storage.objects)
}

func TestAssetDelete_SurfacesStorageError(t *testing.T) {
	storage := newMemStorage()
	storage.deleteErr = errors.New("object storage unavailable")
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	err := svc.Delete(context.Background(), "uploads/x.jpg")

	assert.Error(t, err)
}

func TestAssetPresignedURL(t *testing.T) {
	storage := newMemStorage()
	svc := NewAssetService(storage, "catalog-images", zerolog.Nop())

	raw := encodeJPEG(t, 10, 10)
	ref, err := svc.Save(context.Background(), "product-1-x.jpg", bytes.NewReader(raw))
	require.NoError(t, err)

	url, err := svc.PresignedURL(context.Background(), ref, 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, ref)
}
