package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"oceanwatch/pkg/types"
)

const maxStoredNameLen = 100

// classifyMedia derives the media kind strictly from the declared content
// type.
func classifyMedia(contentType string) (types.MediaKind, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return types.MediaKindImage, nil
	case strings.HasPrefix(mediaType, "video/"):
		return types.MediaKindVideo, nil
	}

	return "", &types.UnsupportedMediaError{ContentType: contentType}
}

func checkMediaSize(att *types.Attachment) error {
	size := att.Size
	if n := int64(len(att.Data)); n > size {
		size = n
	}
	if size > types.MaxMediaBytes {
		return &types.PayloadTooLargeError{Size: size, Limit: types.MaxMediaBytes}
	}
	return nil
}

// mediaKey names a stored attachment as <unix-millis>-<content hash>-<name>.
// The hash prefix keeps two uploads of the same file name in the same
// millisecond apart.
func mediaKey(now time.Time, att *types.Attachment) string {
	sum := sha256.Sum256(att.Data)
	return fmt.Sprintf("incidents/%d-%s-%s", now.UnixMilli(), hex.EncodeToString(sum[:6]), sanitizeFilename(att.Filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		return "upload"
	}
	if len(clean) > maxStoredNameLen {
		ext := filepath.Ext(clean)
		if len(ext) > 10 {
			ext = ""
		}
		clean = clean[:maxStoredNameLen-len(ext)] + ext
	}
	return clean
}
