package identity

import (
	"encoding/base64"
	"net"
	"net/http"
	"strings"
)

const fingerprintLen = 32

// Identity is the (ip, fingerprint) pair used to deduplicate anonymous voters.
// The fingerprint is a coarse digest of client headers, not a security
// credential: distinct users behind the same proxy with identical browsers
// will collide.
type Identity struct {
	IPAddress   string
	Fingerprint string
}

// FromRequest derives the voter identity from connection and header metadata.
// Missing headers degrade to empty strings; it never fails.
func FromRequest(r *http.Request) Identity {
	return Identity{
		IPAddress:   clientIP(r),
		Fingerprint: Fingerprint(
			r.Header.Get("User-Agent"),
			r.Header.Get("Accept-Language"),
			r.Header.Get("Accept-Encoding"),
		),
	}
}

// Fingerprint computes the stable 32-character digest of the header triplet.
// Identical inputs always produce identical output.
func Fingerprint(userAgent, acceptLanguage, acceptEncoding string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(userAgent + acceptLanguage + acceptEncoding))
	if len(enc) > fingerprintLen {
		return enc[:fingerprintLen]
	}
	return enc
}

// Key returns the rate-limiter key for this identity.
func (id Identity) Key() string {
	return id.IPAddress + "-" + id.Fingerprint
}

func clientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
