package workflow

import "strings"

// NonReimbursableMarker tags EES descriptions so downstream reporting can
// tell self-pay entries apart at a glance. EnsureMarker/RemoveMarker run
// automatically on category transitions: entering EES ensures, leaving it
// removes.
const NonReimbursableMarker = "Not for reimbursement"

const markerSuffix = " - " + NonReimbursableMarker

// Older mobile clients appended the marker with an en dash.
const legacyMarkerSuffix = " – " + NonReimbursableMarker

// EnsureMarker attaches the marker to a description. Idempotent: text
// already carrying the marker anywhere (case-insensitive) comes back
// unchanged.
func EnsureMarker(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NonReimbursableMarker
	}
	if strings.Contains(strings.ToLower(trimmed), strings.ToLower(NonReimbursableMarker)) {
		return text
	}
	return trimmed + markerSuffix
}

// RemoveMarker strips the marker EnsureMarker attached. Text without a
// recognizable marker comes back unchanged, so RemoveMarker(EnsureMarker(s))
// round-trips any trimmed s that had no marker.
func RemoveMarker(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, NonReimbursableMarker) {
		return ""
	}
	if stripped, ok := trimSuffixFold(trimmed, markerSuffix); ok {
		return stripped
	}
	if stripped, ok := trimSuffixFold(trimmed, legacyMarkerSuffix); ok {
		return stripped
	}
	return text
}

func trimSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) {
		return s, false
	}
	if strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}
