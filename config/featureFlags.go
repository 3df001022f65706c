package config

import (
	"os"
	"strings"
)

// AnomalyPublishEnabled gates the Pub/Sub leg of the anomaly path.
// When off, findings are still detected and recorded locally.
//
// Set via env:
// - ANOMALY_PUBSUB_ENABLED=true
func AnomalyPublishEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ANOMALY_PUBSUB_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// ReceiptThumbnailsEnabled gates server-side thumbnail generation on receipt upload.
//
// Set via env:
// - RECEIPT_THUMBNAILS_DISABLED=true  (enabled by default)
func ReceiptThumbnailsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RECEIPT_THUMBNAILS_DISABLED")))
	return !(v == "1" || v == "true" || v == "yes" || v == "y")
}
