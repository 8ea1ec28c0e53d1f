// Package storage は商品画像の保存先（ローカルディスク / S3互換）。
package storage

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// パス要素を落として安全な文字だけにし、衝突しないようuuidを前に付ける
func ObjectName(filename string, contentType string) (string, error) {
	ext, ok := allowedContentTypes[normalizeContentType(contentType)]
	if !ok {
		return "", fmt.Errorf("content type %q: %w", contentType, repo.ErrInvalidImage)
	}

	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "image"
	}
	if len(base) > 64 {
		base = base[:64]
	}

	return uuid.NewString() + "_" + base + ext, nil
}

// maxBytesを超えたらErrInvalidImage
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if n > maxBytes {
		return nil, fmt.Errorf("image larger than %d bytes: %w", maxBytes, repo.ErrInvalidImage)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty image: %w", repo.ErrInvalidImage)
	}
	return buf.Bytes(), nil
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
