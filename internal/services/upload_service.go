package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"hightech/internal/repositories"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

// Folders for product images in object storage.
const (
	FolderDXFImages   = "dxfImages"
	FolderPrintImages = "printingImages"
)

// ErrUnsupportedImage is returned for uploads that are not images.
var ErrUnsupportedImage = errors.New("unsupported image format")

// UploadService stores product images and returns their durable URL.
type UploadService struct {
	storage  repositories.ObjectStorage
	maxWidth int
	now      func() time.Time
}

// NewUploadService creates a new UploadService. Raster images wider than maxWidth are
// scaled down; zero disables scaling.
func NewUploadService(storage repositories.ObjectStorage, maxWidth int) *UploadService {
	return &UploadService{
		storage:  storage,
		maxWidth: maxWidth,
		now:      time.Now,
	}
}

// ObjectPath builds "<folder>/<unix-ms>_<filename>".
func (s *UploadService) ObjectPath(folder, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "image"
	}
	return fmt.Sprintf("%s/%s_%s", folder, strconv.FormatInt(s.now().UnixMilli(), 10), name)
}

// Upload sniffs, optionally downscales and stores an image. progress receives whole
// percentages from 0 to 100 and may be nil.
func (s *UploadService) Upload(ctx context.Context, folder, filename string, r io.Reader, progress func(percent int)) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}

	data, err = s.downscale(data, mt)
	if err != nil {
		return "", err
	}

	objectPath := s.ObjectPath(folder, filename)
	report := func(transferred, total int64) {
		if progress == nil {
			return
		}
		if total <= 0 {
			progress(100)
			return
		}
		progress(int(math.Round(float64(transferred) / float64(total) * 100)))
	}

	if err := s.storage.Upload(ctx, objectPath, bytes.NewReader(data), int64(len(data)), report); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	url, err := s.storage.URL(objectPath)
	if err != nil {
		if rmErr := s.storage.Delete(ctx, objectPath); rmErr != nil {
			log.Printf("Failed to remove unreachable upload %s: %v", objectPath, rmErr)
		}
		return "", fmt.Errorf("failed to resolve url of %s: %w", objectPath, err)
	}
	return url, nil
}

func (s *UploadService) downscale(data []byte, mt *mimetype.MIME) ([]byte, error) {
	if s.maxWidth <= 0 {
		return data, nil
	}

	var encode func(io.Writer, image.Image) error
	switch {
	case mt.Is("image/jpeg"):
		encode = func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 80})
		}
	case mt.Is("image/png"):
		encode = png.Encode
	case mt.Is("image/gif"):
		encode = func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}
	default:
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedImage, err)
	}
	if img.Bounds().Dx() <= s.maxWidth {
		return data, nil
	}

	resized := resize.Resize(uint(s.maxWidth), 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := encode(&buf, resized); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
