package identity

import (
	"net/http/httptest"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Mozilla/5.0 (X11; Linux x86_64)", "en-US,en;q=0.9", "gzip, deflate, br")
	b := Fingerprint("Mozilla/5.0 (X11; Linux x86_64)", "en-US,en;q=0.9", "gzip, deflate, br")
	if a != b {
		t.Fatalf("expected identical fingerprints, got %q and %q", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-char fingerprint, got %d", len(a))
	}

	c := Fingerprint("Mozilla/5.0 (X11; Linux x86_64)", "de-DE", "gzip, deflate, br")
	if a == c {
		t.Fatalf("expected different headers to change the fingerprint")
	}
}

func TestFingerprintMissingHeaders(t *testing.T) {
	if got := Fingerprint("", "", ""); got != "" {
		t.Fatalf("expected empty fingerprint for empty headers, got %q", got)
	}
	// Short inputs yield less than 32 characters instead of padding.
	if got := Fingerprint("ua", "", ""); len(got) == 0 || len(got) > 32 {
		t.Fatalf("unexpected fingerprint %q", got)
	}
}

func TestFromRequestIPResolution(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded first value wins", "203.0.113.7, 10.0.0.1", "198.51.100.2", "192.0.2.1:4321", "203.0.113.7"},
		{"real ip fallback", "", "198.51.100.2", "192.0.2.1:4321", "198.51.100.2"},
		{"socket peer fallback", "", "", "192.0.2.1:4321", "192.0.2.1"},
		{"unsplittable remote addr", "", "", "192.0.2.1", "192.0.2.1"},
		{"nothing known", "", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := FromRequest(r).IPAddress; got != tt.want {
				t.Fatalf("expected ip %q, got %q", tt.want, got)
			}
		})
	}
}
