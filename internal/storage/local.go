// Package storage keeps uploaded files on local disk under a single root.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrEmpty           = errors.New("empty file")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidPath     = errors.New("invalid file path")
)

// ReceiptTypes are accepted for bank transfer receipts.
var ReceiptTypes = []string{"application/pdf", "image/png", "image/jpeg"}

// DocumentTypes are accepted for task requirements, progress and final work.
var DocumentTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/zip",
}

// ImageTypes are accepted for profile pictures.
var ImageTypes = []string{"image/png", "image/jpeg", "image/webp"}

// Stored describes a file written to disk. Path is relative to the root.
type Stored struct {
	StoredName string
	Path       string
	Size       int64
	MimeType   string
	Extension  string
}

type Local struct {
	root     string
	maxBytes int64
}

func NewLocal(root string, maxBytes int64) *Local {
	return &Local{root: filepath.Clean(root), maxBytes: maxBytes}
}

func (l *Local) Root() string { return l.root }

// Save writes r to <root>/<owner>/<uuid><ext>. The content type is detected
// from the leading bytes and must be one of allowed.
func (l *Local) Save(ownerID int64, r io.Reader, allowed []string) (*Stored, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	if !isAllowed(mt, allowed) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	dir := strconv.FormatInt(ownerID, 10)
	if err := os.MkdirAll(filepath.Join(l.root, dir), 0o755); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}
	name := uuid.NewString() + mt.Extension()
	rel := filepath.ToSlash(filepath.Join(dir, name))
	abs := filepath.Join(l.root, dir, name)

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	body := io.MultiReader(bytes.NewReader(head), r)
	if l.maxBytes > 0 {
		body = io.LimitReader(body, l.maxBytes+1)
	}
	size, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.maxBytes > 0 && size > l.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(abs)
		return nil, err
	}

	return &Stored{
		StoredName: name,
		Path:       rel,
		Size:       size,
		MimeType:   mt.String(),
		Extension:  strings.TrimPrefix(mt.Extension(), "."),
	}, nil
}

// Open opens a stored file by its relative path.
func (l *Local) Open(rel string) (*os.File, error) {
	abs, err := l.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// Remove deletes a stored file. A missing file is not an error.
func (l *Local) Remove(rel string) error {
	abs, err := l.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(l.root, clean), nil
}

func isAllowed(mt *mimetype.MIME, allowed []string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/octet-stream") {
			return false
		}
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}
