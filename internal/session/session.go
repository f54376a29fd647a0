package session

import "net/http"

// CookieName is the marketplace session cookie.
const CookieName = "_harmoney_session_id"

// CSRFHeader carries the rotating anti-forgery token in both directions:
// the server returns a fresh value on responses and expects it echoed on
// the next state-changing request.
const CSRFHeader = "X-CSRF-Token"

// Session holds the mutable token pair for the active marketplace session.
// It is owned by a single actor; every marketplace response is fed through
// Observe so the stored values never go stale.
type Session struct {
	cookie string
	csrf   string
}

// New returns an empty, unauthenticated session.
func New() *Session {
	return &Session{}
}

// Observe updates the session from response headers and cookies. Any newer
// cookie or CSRF value overwrites the stored one; absent values leave the
// current tokens in place.
func (s *Session) Observe(header http.Header, cookies []*http.Cookie) {
	for _, c := range cookies {
		if c.Name == CookieName && c.Value != "" {
			s.cookie = c.Value
		}
	}
	if v := header.Get(CSRFHeader); v != "" {
		s.csrf = v
	}
}

// Cookie returns the current session cookie value, or "" if none is held.
func (s *Session) Cookie() string { return s.cookie }

// CSRF returns the current anti-forgery token, or "" if none observed yet.
func (s *Session) CSRF() string { return s.csrf }

// Reset discards both tokens, returning the session to its empty state.
func (s *Session) Reset() {
	s.cookie = ""
	s.csrf = ""
}
