package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const defaultChunkSize = 256 << 10 // 256KB

// ErrInvalidPath is returned for object paths that are empty or escape the bucket.
var ErrInvalidPath = errors.New("invalid object path")

// ProgressFunc reports bytes transferred so far out of total (total may be 0 if unknown).
type ProgressFunc func(transferred, total int64)

// ObjectStorage defines the blob store used for product images.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, size int64, progress ProgressFunc) error
	URL(objectPath string) (string, error)
	Open(objectPath string) (afero.File, error)
	Delete(ctx context.Context, objectPath string) error
}

// AferoObjectStorage stores objects on an afero filesystem. Uploads are written in chunks to
// a ".part" object which is renamed into place once complete, so readers never see a
// partially written object.
type AferoObjectStorage struct {
	fs        afero.Fs
	baseURL   string
	chunkSize int
}

// NewAferoObjectStorage creates an object store on fs whose objects are served under baseURL.
func NewAferoObjectStorage(fs afero.Fs, baseURL string) *AferoObjectStorage {
	return &AferoObjectStorage{
		fs:        fs,
		baseURL:   strings.TrimRight(baseURL, "/"),
		chunkSize: defaultChunkSize,
	}
}

// NewDiskObjectStorage creates an object store rooted at dir on the local disk.
func NewDiskObjectStorage(dir, baseURL string) (*AferoObjectStorage, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return NewAferoObjectStorage(afero.NewBasePathFs(osFs, dir), baseURL), nil
}

func cleanObjectPath(p string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(p))
	if cleaned == "/" || hasParentSegment(p) {
		return "", fmt.Errorf("%q: %w", p, ErrInvalidPath)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// hasParentSegment reports whether p walks up a directory. Dots inside a name are allowed.
func hasParentSegment(p string) bool {
	segments := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		if strings.TrimSpace(seg) == ".." {
			return true
		}
	}
	return false
}

// Upload copies r into objectPath chunk by chunk, reporting progress after every chunk.
// On failure the partial object is removed.
func (s *AferoObjectStorage) Upload(_ context.Context, objectPath string, r io.Reader, size int64, progress ProgressFunc) error {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}

	partPath := p + ".part"
	out, err := s.fs.OpenFile(partPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open object %s: %w", p, err)
	}

	abort := func(cause error) error {
		out.Close()
		if rmErr := s.fs.Remove(partPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("%w (cleanup failed: %v)", cause, rmErr)
		}
		return cause
	}

	buf := make([]byte, s.chunkSize)
	var transferred int64
	if progress != nil {
		progress(0, size)
	}
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return abort(fmt.Errorf("failed to write object %s: %w", p, err))
			}
			transferred += int64(n)
			if progress != nil {
				progress(transferred, size)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return abort(fmt.Errorf("failed to read upload for %s: %w", p, readErr))
		}
	}

	if err := out.Close(); err != nil {
		return abort(fmt.Errorf("failed to close object %s: %w", p, err))
	}
	if err := s.fs.Rename(partPath, p); err != nil {
		return abort(fmt.Errorf("failed to finalize object %s: %w", p, err))
	}
	return nil
}

// URL resolves the durable download URL of an uploaded object.
func (s *AferoObjectStorage) URL(objectPath string) (string, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	if _, err := s.fs.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("object %s: %w", p, ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat object %s: %w", p, err)
	}

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/"), nil
}

// Open opens an uploaded object for reading.
func (s *AferoObjectStorage) Open(objectPath string) (afero.File, error) {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(p, ".part") {
		return nil, fmt.Errorf("object %s: %w", p, ErrNotFound)
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", p, err)
	}
	return f, nil
}

// Delete removes an object.
func (s *AferoObjectStorage) Delete(_ context.Context, objectPath string) error {
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("object %s: %w", p, ErrNotFound)
		}
		return fmt.Errorf("failed to delete object %s: %w", p, err)
	}
	return nil
}

var _ ObjectStorage = (*AferoObjectStorage)(nil)
