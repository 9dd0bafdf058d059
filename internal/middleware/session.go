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
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const sessionCookieName = "KABAR_SESSION"

// SessionData is the signed cookie payload. Visitor is stable for the life of
// the cookie and keys the visitor's preferences; ID rotates on sign-in.
type SessionData struct {
	ID        string    `json:"id"`
	Visitor   string    `json:"v"`
	UserID    string    `json:"uid,omitempty"`
	UserName  string    `json:"uname,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool `json:"-"`
}

// SessionOptions configures cookie signing.
type SessionOptions struct {
	// Secret signs the cookie. Empty generates a process-ephemeral key.
	Secret string
	Secure bool
	MaxAge time.Duration
	Logger *zap.Logger
}

type sessionCodec struct {
	key    []byte
	secure bool
	maxAge time.Duration
}

var sessionSecure bool

// Session loads or initializes a session and stores it in request context.
func Session(opts SessionOptions) func(http.Handler) http.Handler {
	codec := newSessionCodec(opts)
	sessionSecure = codec.secure
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, fromCookie := codec.read(r)
			if sd.ID == "" {
				now := time.Now().UTC()
				sd.ID = randID()
				sd.Visitor = ulid.Make().String()
				sd.CreatedAt = now
				sd.UpdatedAt = now
				sd.CSRFToken = newCSRFToken()
				sd.dirty = true
			}
			if sd.Visitor == "" {
				sd.Visitor = ulid.Make().String()
				sd.dirty = true
			}
			ctx := contextWithSession(r.Context(), sd)
			rw := NewResponseRecorder(w)
			// ensure cookie is set just before first write if needed
			rw.SetBeforeWrite(func(w http.ResponseWriter) {
				if sd.dirty || !fromCookie {
					codec.write(w, sd)
				}
			})
			next.ServeHTTP(rw, r.WithContext(ctx))
			// If nothing was written yet (e.g., HEAD), persist cookie now
			if !rw.Wrote() && (sd.dirty || !fromCookie) {
				codec.write(w, sd)
			}
		})
	}
}

func newSessionCodec(opts SessionOptions) *sessionCodec {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	key := []byte(opts.Secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			logger.Error("session: generate signing key", zap.Error(err))
			key = []byte("insecure-dev-key-please-set-KABAR_SESSION_SECRET")
		}
		logger.Warn("session: using ephemeral signing key; set KABAR_SESSION_SECRET in production")
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &sessionCodec{key: key, secure: opts.Secure, maxAge: maxAge}
}

func contextWithSession(ctx context.Context, s *SessionData) context.Context {
	ctx = context.WithValue(ctx, ctxKeySession, s)
	if s.UserID != "" {
		ctx = WithUser(ctx, &User{ID: s.UserID, Name: s.UserName})
	}
	return ctx
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

// SignIn records the user and rotates the session id and CSRF token.
func (s *SessionData) SignIn(userID, name string) {
	s.UserID = userID
	s.UserName = name
	s.RegenerateID()
}

// SignOut clears the user and rotates the session id.
func (s *SessionData) SignOut() {
	s.UserID = ""
	s.UserName = ""
	s.RegenerateID()
}

// RegenerateID assigns a new session ID and CSRF token to prevent fixation after auth.
func (s *SessionData) RegenerateID() {
	s.ID = randID()
	s.CSRFToken = newCSRFToken()
	s.MarkDirty()
}

func (c *sessionCodec) read(r *http.Request) (*SessionData, bool) {
	ck, err := r.Cookie(sessionCookieName)
	if err != nil || ck.Value == "" {
		return &SessionData{}, false
	}
	payload, ok := c.verify(ck.Value)
	if !ok {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (c *sessionCodec) verify(value string) ([]byte, bool) {
	payloadPart, sigPart, found := strings.Cut(value, ".")
	if !found {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(sig, c.sign(payload)) {
		return nil, false
	}
	return payload, true
}

func (c *sessionCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (c *sessionCodec) encode(sd *SessionData) string {
	b, _ := json.Marshal(sd)
	return base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(c.sign(b))
}

func (c *sessionCodec) write(w http.ResponseWriter, sd *SessionData) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    c.encode(sd),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(c.maxAge),
	})
}

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
