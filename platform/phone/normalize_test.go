package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"099 123 4567", "+593991234567"},
		{"+593 99 123 4567", "+593991234567"},
		{"not-a-number", "not-a-number"},
		{" 12 ", "12"},
	}

	for _, tc := range tests {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeInOtherRegion(t *testing.T) {
	if got := NormalizeIn("0412 345 678", "AU"); got != "+61412345678" {
		t.Fatalf("unexpected number: %q", got)
	}
}
