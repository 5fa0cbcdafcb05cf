package blob

import (
	"context"
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MB = 1 << 20
	// DefaultMaxBytes bounds a single upload.
	DefaultMaxBytes = 50 * MB
	// PublicPrefix is the path under which stored files are served.
	PublicPrefix = "/uploads/"
)

// LocalStore writes uploads to a directory and hands back a public reference.
// Only images and videos are accepted; the type is sniffed from the content,
// never trusted from the file name.
type LocalStore struct {
	log      *slog.Logger
	dir      string
	maxBytes int
	now      func() time.Time
}

var _ contract.BlobStore = (*LocalStore)(nil)

func NewLocalStore(log *slog.Logger, dir string, maxBytes int) (*LocalStore, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStore{log: log, dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *LocalStore) Put(ctx context.Context, fileName string, data []byte) (contract.BlobRef, error) {
	if len(data) == 0 {
		return contract.BlobRef{}, fmt.Errorf("%w: empty upload", errors.ErrValidation)
	}
	if len(data) > s.maxBytes {
		return contract.BlobRef{}, fmt.Errorf("%w: %d bytes (limit is %d)", errors.ErrBlobTooLarge, len(data), s.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return contract.BlobRef{}, err
	}

	detected := mimetype.Detect(data)
	if _, err := chat.KindFromMIME(detected.String()); err != nil {
		return contract.BlobRef{}, err
	}

	// The client name is never trusted for the extension.
	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), detected.Extension())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return contract.BlobRef{}, fmt.Errorf("store upload %s: %w", name, err)
	}

	s.log.Debug("Stored upload", "file_name", fileName, "ref", PublicPrefix+name, "mime", detected.String(), "bytes", len(data))
	return contract.BlobRef{Ref: PublicPrefix + name, MIME: detected.String()}, nil
}
