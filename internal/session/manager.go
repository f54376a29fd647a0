package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mbennett2212/harmoney-autobuy/internal/model"
)

// ErrNoSessionCookie indicates a login response that carried no session
// cookie, leaving nothing to authenticate subsequent calls with.
var ErrNoSessionCookie = errors.New("login response carried no session cookie")

// IdentityMismatchError indicates the authenticated account does not belong
// to the configured owner. Fatal to the cycle, not to the process.
type IdentityMismatchError struct {
	Field string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("account %s does not match configured identity", e.Field)
}

// API is the slice of the marketplace client the manager drives during login.
type API interface {
	SignIn(ctx context.Context, email, password string) error
	Account(ctx context.Context) (*model.Account, error)
}

// Manager owns the Session and the authentication lifecycle: sign-in,
// identity validation, and access to the current token pair.
type Manager struct {
	api           API
	session       *Session
	identity      model.Identity
	password      string
	authenticated bool
}

// NewManager creates a manager for the given session and account owner.
func NewManager(api API, sess *Session, identity model.Identity, password string) *Manager {
	return &Manager{api: api, session: sess, identity: identity, password: password}
}

// Login establishes a fresh authenticated session: sign in, confirm a
// session cookie was issued, then fetch the account and require an exact
// match on all identity fields. Any failure resets the session to its
// empty, unauthenticated state.
func (m *Manager) Login(ctx context.Context) error {
	m.authenticated = false
	m.session.Reset()

	if err := m.api.SignIn(ctx, m.identity.Email, m.password); err != nil {
		m.session.Reset()
		return fmt.Errorf("sign in: %w", err)
	}
	if m.session.Cookie() == "" {
		return ErrNoSessionCookie
	}

	acct, err := m.api.Account(ctx)
	if err != nil {
		m.session.Reset()
		return fmt.Errorf("fetch account: %w", err)
	}
	if field, ok := matchIdentity(acct, m.identity); !ok {
		m.session.Reset()
		return &IdentityMismatchError{Field: field}
	}

	m.authenticated = true
	log.Printf("[INFO] authenticated as %s", m.identity.Email)
	return nil
}

// Authenticated reports whether the session passed both login and identity
// validation.
func (m *Manager) Authenticated() bool { return m.authenticated }

// Token returns the current cookie/CSRF pair. ok is false until the session
// is fully authenticated; callers must not use a token pair before then.
func (m *Manager) Token() (cookie, csrf string, ok bool) {
	if !m.authenticated {
		return "", "", false
	}
	return m.session.Cookie(), m.session.CSRF(), true
}

func matchIdentity(acct *model.Account, id model.Identity) (string, bool) {
	switch {
	case acct.FirstName != id.FirstName:
		return "first name", false
	case acct.LastName != id.LastName:
		return "last name", false
	case acct.Email != id.Email:
		return "email", false
	}
	return "", true
}
