package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/oauth"
)

// sessionCookieName is the cookie carrying the opaque session id. Its value
// never carries data itself; the payload lives server-side in sessionStore.
const sessionCookieName = "authd_session"

// sessionTTL bounds how long a pending authorize request survives, wide
// enough to cover a human working through a consent screen.
const sessionTTL = 15 * time.Minute

// sessionStore is a minimal in-process session mechanism: enough to drive
// the GET/POST /authorize consent round trip end to end (spec §9 notes the
// `_oauth2_auth_request` payload is "small and bounded" and "could
// equivalently live in a signed token"). Production deployments swap this
// for their own session layer; nothing in internal/oauth depends on this
// implementation, only on the oauth.SessionStore interface it satisfies.
type sessionStore struct {
	mu   sync.Mutex
	data map[string]sessionEntry
}

type sessionEntry struct {
	values    map[string]map[string]string
	expiresAt time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{data: make(map[string]sessionEntry)}
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *sessionStore) prune() {
	now := time.Now()
	for id, entry := range s.data {
		if now.After(entry.expiresAt) {
			delete(s.data, id)
		}
	}
}

// session adapts a single cookie-identified entry to oauth.SessionStore.
type session struct {
	store *sessionStore
	id    string
}

func (s *session) Get(key string) (map[string]string, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	entry, ok := s.store.data[s.id]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	v, ok := entry.values[key]
	return v, ok
}

func (s *session) Put(key string, value map[string]string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.prune()
	entry, ok := s.store.data[s.id]
	if !ok {
		entry = sessionEntry{values: make(map[string]map[string]string)}
	}
	entry.values[key] = value
	entry.expiresAt = time.Now().Add(sessionTTL)
	s.store.data[s.id] = entry
}

func (s *session) Delete(key string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	entry, ok := s.store.data[s.id]
	if !ok {
		return
	}
	delete(entry.values, key)
	s.store.data[s.id] = entry
}

var _ oauth.SessionStore = (*session)(nil)

// sessionFor returns the oauth.SessionStore bound to the request's session
// cookie, minting a fresh id and setting the cookie if absent.
func (s *sessionStore) sessionFor(c *gin.Context) *session {
	id, err := c.Cookie(sessionCookieName)
	if err != nil || id == "" {
		id, genErr := generateSessionID()
		if genErr != nil {
			log.WithError(genErr).Error("httpapi: failed to generate session id")
			id = ""
		}
		c.SetCookie(sessionCookieName, id, int(sessionTTL.Seconds()), "/", "", false, true)
		return &session{store: s, id: id}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	return &session{store: s, id: id}
}
