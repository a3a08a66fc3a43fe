// Package objectstore holds helpers shared by the object storage backends.
package objectstore

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key builds a unique object key for an upload, keeping the original file
// name readable at the end.
func Key(filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%s-%s", now.UTC().Format("2006/01/02"), uuid.NewString()[:8], base)
}

// ValidKey rejects keys that would escape the storage root.
func ValidKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty object key")
	}
	clean := path.Clean("/" + key)
	if clean != "/"+key {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

// JoinURL appends an escaped key to a base URL.
func JoinURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
