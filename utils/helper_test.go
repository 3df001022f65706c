package utils

import (
	"testing"
	"time"
)

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	stamp := time.Date(2026, 1, 15, 2, 30, 0, 0, loc) // Jan 14 19:30 UTC

	got := DateOnly(stamp)
	want := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DateOnly = %v, want %v", got, want)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 1, 15, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, 1, 15, 23, 59, 59, 0, time.UTC)
	if !SameDay(a, b) {
		t.Fatal("timestamps on the same UTC day must match")
	}
	if SameDay(a, b.Add(time.Second)) {
		t.Fatal("midnight rollover must not match")
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC))
	if start != time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("start = %v", start)
	}
	if end != time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("end = %v", end)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := SplitAndTrim(" a, ,b , c,")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExtractObjectKeyFromURL(t *testing.T) {
	t.Setenv("GCS_BUCKET", "receipts-bucket")

	cases := []struct {
		in   string
		want string
	}{
		{"receipts/7/2026-01/a.jpg", "receipts/7/2026-01/a.jpg"},
		{"gs://receipts-bucket/receipts/7/a.jpg", "receipts/7/a.jpg"},
		{"https://storage.googleapis.com/receipts-bucket/receipts/7/a.jpg", "receipts/7/a.jpg"},
		{"receipts/../etc/passwd", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractObjectKeyFromURL(tc.in); got != tc.want {
			t.Fatalf("ExtractObjectKeyFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
