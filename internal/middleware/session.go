package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sessionCookieName = "LEFTMOVE_SESSION"
	sessionTTL        = 30 * 24 * time.Hour
)

// SessionData is the per-visitor state carried in the signed session cookie.
// Form values are never stored here; they travel with each form post.
type SessionData struct {
	ID        string       `json:"id"`
	Locale    string       `json:"locale,omitempty"`
	CSRFToken string       `json:"csrf,omitempty"`
	Menu      string       `json:"menu,omitempty"`
	Contact   ContactState `json:"contact,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool `json:"-"`
}

// ContactState records whether the visitor has just submitted successfully.
type ContactState struct {
	Sent bool `json:"sent,omitempty"`
}

// SessionOptions configures cookie signing.
type SessionOptions struct {
	SigningKey []byte
	Secure     bool
}

var sessionCfg = struct {
	mu     sync.RWMutex
	key    []byte
	secure bool
}{}

func init() {
	// process-ephemeral key until ConfigureSession is called
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		key = []byte("insecure-dev-key-set-LEFTMOVE_WEB_SESSION_SIGNING_KEY")
	}
	sessionCfg.key = key
}

// ConfigureSession sets the signing key and the Secure cookie flag. An empty key
// keeps the ephemeral development key.
func ConfigureSession(opts SessionOptions) {
	sessionCfg.mu.Lock()
	defer sessionCfg.mu.Unlock()
	if len(opts.SigningKey) > 0 {
		sessionCfg.key = append([]byte(nil), opts.SigningKey...)
	}
	sessionCfg.secure = opts.Secure
}

func sessionKey() []byte {
	sessionCfg.mu.RLock()
	defer sessionCfg.mu.RUnlock()
	return sessionCfg.key
}

func sessionSecure() bool {
	sessionCfg.mu.RLock()
	defer sessionCfg.mu.RUnlock()
	return sessionCfg.secure
}

// Session loads or initializes a session and stores it in request context.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := readSessionCookie(r)
		if sd.ID == "" {
			sd.ID = randID()
			sd.CreatedAt = time.Now().UTC()
			sd.UpdatedAt = sd.CreatedAt
			sd.CSRFToken = newCSRFToken()
			sd.dirty = true
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		rw := NewResponseRecorder(w)
		// the cookie must be set before the first byte of the body goes out
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				writeSessionCookie(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		if !rw.Wrote() && (sd.dirty || !fromCookie) {
			writeSessionCookie(w, sd)
		}
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if v := r.Context().Value(ctxKeySession); v != nil {
		if sd, ok := v.(*SessionData); ok {
			return sd
		}
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// SetMenu stores the mobile menu state.
func (s *SessionData) SetMenu(state string) {
	if s.Menu == state {
		return
	}
	s.Menu = state
	s.MarkDirty()
}

// TakeContactSent returns and clears the one-shot "message sent" flag.
func (s *SessionData) TakeContactSent() bool {
	if !s.Contact.Sent {
		return false
	}
	s.Contact.Sent = false
	s.MarkDirty()
	return true
}

// readSessionCookie parses and verifies the session cookie
func readSessionCookie(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return &SessionData{}, false
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return &SessionData{}, false
	}
	sigB, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return &SessionData{}, false
	}
	mac := hmac.New(sha256.New, sessionKey())
	mac.Write(payloadB)
	if !hmac.Equal(sigB, mac.Sum(nil)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payloadB, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func writeSessionCookie(w http.ResponseWriter, sd *SessionData) {
	b, _ := json.Marshal(sd)
	payload := base64.RawURLEncoding.EncodeToString(b)
	mac := hmac.New(sha256.New, sessionKey())
	mac.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    payload + "." + sig,
		Path:     "/",
		HttpOnly: true,
		Secure:   sessionSecure(),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
