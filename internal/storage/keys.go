// Package storage abstracts the object store holding user and ficada photos.
//
// Keys follow the fixed conventions of the product:
//
//	users/{userId}/profile.jpg
//	ficadas/{ficadaId}/photo.jpg
//
// Photo references are persisted as full download URLs; KeyFromURL reverses a
// reference back into a storage key so deletes can be attempted from the URL
// alone. A URL that is not ours maps to the empty key and deletion becomes a
// no-op, which is the desired behavior for stale or foreign references.
package storage

import (
	"net/url"
	"strings"
)

// ProfilePhotoKey returns the object key for a user's profile photo.
func ProfilePhotoKey(userID string) string {
	return "users/" + userID + "/profile.jpg"
}

// FicadaPhotoKey returns the object key for a ficada's photo.
func FicadaPhotoKey(ficadaID string) string {
	return "ficadas/" + ficadaID + "/photo.jpg"
}

// KeyFromURL extracts the storage key from a photo download URL produced by
// this store. It returns "" when the URL does not reference a known key
// prefix, including malformed URLs and references into other systems.
func KeyFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(u.Path, "/")
	// Bucket-in-path style (e.g. MinIO): strip the leading bucket segment
	// when the remainder starts with a known prefix.
	if i := strings.IndexByte(path, '/'); i > 0 {
		if rest := path[i+1:]; hasKnownPrefix(rest) {
			return rest
		}
	}
	if hasKnownPrefix(path) {
		return path
	}
	return ""
}

func hasKnownPrefix(key string) bool {
	return strings.HasPrefix(key, "users/") || strings.HasPrefix(key, "ficadas/")
}
