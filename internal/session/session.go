// Package session reads and writes the credentials a browser presents on every navigation.
package session

import (
	"context"
	"net/http"
	"time"

	"registrydash/internal/auth"

	"github.com/google/uuid"
)

const (
	CredentialsCookie = "session"
	RefreshCookie     = "refresh"
)

// Token is an opaque credential. Only its owner and session are known to the dashboard.
type Token struct {
	Raw       string
	UserID    string
	SessionID string
}

type RefreshToken struct {
	Raw       string
	UserID    string
	SessionID string
	Exp       int64 // unix seconds
}

// Session is what the guard consults. A nil field means absent.
type Session struct {
	Credentials *Token
	Refresh     *RefreshToken
}

func (s Session) HasCredentials() bool { return s.Credentials != nil }
func (s Session) HasRefresh() bool     { return s.Refresh != nil }

// Present reports whether both tokens exist, regardless of expiry.
func (s Session) Present() bool { return s.HasCredentials() && s.HasRefresh() }

// Authenticated reports whether both tokens exist and the refresh token
// expires strictly after now.
func (s Session) Authenticated(now time.Time) bool {
	return s.Present() && s.Refresh.Exp > now.Unix()
}

// ID identifies one sign-in. Two browsers of the same user have different IDs.
func (s Session) ID() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.SessionID
}

// UserID of the credentials, or "" when signed out.
func (s Session) UserID() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.UserID
}

// Provider turns request cookies into a Session.
type Provider struct {
	Tokens *auth.Tokens
	// Secure marks issued cookies HTTPS-only.
	Secure bool
}

func NewProvider(tokens *auth.Tokens) *Provider {
	return &Provider{Tokens: tokens}
}

// FromRequest never fails: unreadable or forged cookies count as absent.
func (p *Provider) FromRequest(r *http.Request) Session {
	var s Session
	if c, err := r.Cookie(CredentialsCookie); err == nil && c.Value != "" {
		if claims, err := p.Tokens.Parse(c.Value, auth.KindAccess); err == nil {
			s.Credentials = &Token{Raw: c.Value, UserID: claims.Subject, SessionID: claims.ID}
		}
	}
	if c, err := r.Cookie(RefreshCookie); err == nil && c.Value != "" {
		if claims, err := p.Tokens.Parse(c.Value, auth.KindRefresh); err == nil {
			rt := &RefreshToken{Raw: c.Value, UserID: claims.Subject, SessionID: claims.ID}
			if claims.ExpiresAt != nil {
				rt.Exp = claims.ExpiresAt.Unix()
			}
			s.Refresh = rt
		}
	}
	// Tokens minted for different sign-ins are not one session.
	if s.Present() && (s.Credentials.UserID != s.Refresh.UserID || s.Credentials.SessionID != s.Refresh.SessionID) {
		s.Refresh = nil
	}
	return s
}

// Issue starts a new session for userID, sets both cookies and returns the
// session they represent.
func (p *Provider) Issue(w http.ResponseWriter, userID string) (Session, error) {
	sid := uuid.NewString()
	access, err := p.Tokens.Issue(userID, sid, auth.KindAccess)
	if err != nil {
		return Session{}, err
	}
	refresh, err := p.Tokens.Issue(userID, sid, auth.KindRefresh)
	if err != nil {
		return Session{}, err
	}
	claims, err := p.Tokens.Parse(refresh, auth.KindRefresh)
	if err != nil {
		return Session{}, err
	}

	// The credentials cookie lives as long as the refresh token; the guard
	// decides validity from the refresh expiry.
	expires := claims.ExpiresAt.Time
	http.SetCookie(w, p.cookie(CredentialsCookie, access, expires))
	http.SetCookie(w, p.cookie(RefreshCookie, refresh, expires))

	return Session{
		Credentials: &Token{Raw: access, UserID: userID, SessionID: sid},
		Refresh:     &RefreshToken{Raw: refresh, UserID: userID, SessionID: sid, Exp: expires.Unix()},
	}, nil
}

// Clear expires both cookies.
func (p *Provider) Clear(w http.ResponseWriter) {
	for _, name := range []string{CredentialsCookie, RefreshCookie} {
		c := p.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (p *Provider) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From returns the session stored by the session middleware, or an empty one.
func From(ctx context.Context) Session {
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
