package workflow

import "testing"

func TestEnsureMarker(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"blank", "", "Not for reimbursement"},
		{"whitespace only", "   ", "Not for reimbursement"},
		{"plain text", "Team lunch", "Team lunch - Not for reimbursement"},
		{"trims before appending", "  Team lunch  ", "Team lunch - Not for reimbursement"},
		{"already marked", "Team lunch - Not for reimbursement", "Team lunch - Not for reimbursement"},
		{"marker different case", "Team lunch - NOT FOR REIMBURSEMENT", "Team lunch - NOT FOR REIMBURSEMENT"},
		{"marker mid-text", "Not for reimbursement: personal", "Not for reimbursement: personal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EnsureMarker(tc.in); got != tc.want {
				t.Fatalf("EnsureMarker(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEnsureMarkerIdempotent(t *testing.T) {
	inputs := []string{"", "Team lunch", "x", "Not for reimbursement"}
	for _, in := range inputs {
		once := EnsureMarker(in)
		twice := EnsureMarker(once)
		if once != twice {
			t.Fatalf("EnsureMarker not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestRemoveMarker(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"marker alone", "Not for reimbursement", ""},
		{"marker alone different case", "NOT FOR REIMBURSEMENT", ""},
		{"canonical suffix", "Team lunch - Not for reimbursement", "Team lunch"},
		{"legacy en dash suffix", "Team lunch – Not for reimbursement", "Team lunch"},
		{"no marker", "Team lunch", "Team lunch"},
		{"blank", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RemoveMarker(tc.in); got != tc.want {
				t.Fatalf("RemoveMarker(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMarkerRoundTrip(t *testing.T) {
	inputs := []string{"Team lunch", "x", "Lodging deposit", "a - b"}
	for _, in := range inputs {
		if got := RemoveMarker(EnsureMarker(in)); got != in {
			t.Fatalf("round trip of %q gave %q", in, got)
		}
	}
}
