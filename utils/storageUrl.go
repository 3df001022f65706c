package utils

import (
	"net/url"
	"os"
	"strings"
)

// BuildObjectAccessURL maps a stored object key to the URL clients fetch it
// from. STORAGE_ACCESS_BASE_URL may be a prefix or a template containing
// {objectKey}; without it we fall back to the public GCS URL, and with no
// storage config at all the key itself is returned.
func BuildObjectAccessURL(objectKey string) string {
	base := strings.TrimSpace(os.Getenv("STORAGE_ACCESS_BASE_URL"))
	if base != "" {
		if strings.Contains(base, "{objectKey}") {
			escaped := objectKey
			if strings.Contains(base, "?") {
				escaped = url.QueryEscape(objectKey)
			}
			return strings.ReplaceAll(base, "{objectKey}", escaped)
		}
		if strings.Contains(base, "?") {
			return base + url.QueryEscape(objectKey)
		}
		return strings.TrimRight(base, "/") + "/" + objectKey
	}

	gcsURL := strings.TrimSpace(os.Getenv("GCS_URL"))
	gcsBucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if gcsURL != "" && gcsBucket != "" {
		return "https://" + gcsURL + "/" + gcsBucket + "/" + objectKey
	}

	return objectKey
}

// ExtractObjectKeyFromURL recovers the object key from whatever form the
// image ref was stored in: a raw key, a gs:// URL, or an https URL built by
// BuildObjectAccessURL. Returns "" when no key can be recovered.
func ExtractObjectKeyFromURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	// Raw object keys (e.g. "receipts/12/2026-01/uuid.jpg") pass through,
	// with basic traversal hardening.
	if !strings.Contains(rawURL, "://") && !strings.HasPrefix(rawURL, "/") {
		if strings.Contains(rawURL, "..") {
			return ""
		}
		return rawURL
	}

	if strings.HasPrefix(rawURL, "gs://") {
		trimmed := strings.TrimPrefix(rawURL, "gs://")
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) == 2 {
			return parts[1]
		}
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket != "" && strings.HasPrefix(path, bucket+"/") {
		return strings.TrimPrefix(path, bucket+"/")
	}
	return path
}
