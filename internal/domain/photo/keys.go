package photo

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// StorageKey names the blob of a new upload: the upload time in unix
// milliseconds, the nonce and the original name reduced to [A-Za-z0-9.-],
// joined by dashes. An empty nonce is left out.
func StorageKey(at time.Time, nonce, filename, contentType string) string {
	name := unsafeKeyChars.ReplaceAllString(filename, "")
	if strings.Trim(name, ".") == "" {
		name = "photo" + mimeToExt(contentType)
	}
	key := strconv.FormatInt(at.UnixMilli(), 10) + "-"
	if nonce = unsafeKeyChars.ReplaceAllString(nonce, ""); nonce != "" {
		key += nonce + "-"
	}
	return key + name
}

// newNonce is a short random key part that separates uploads made in the
// same millisecond.
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// BlobKeyFromURL returns the last path segment of a public image URL.
func BlobKeyFromURL(imageURL string) string {
	if i := strings.IndexAny(imageURL, "?#"); i >= 0 {
		imageURL = imageURL[:i]
	}
	imageURL = strings.TrimRight(imageURL, "/")
	if i := strings.LastIndex(imageURL, "/"); i >= 0 {
		return imageURL[i+1:]
	}
	return imageURL
}

func mimeToExt(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ""
	}
}
