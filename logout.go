package samlvalidate

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// LogoutHandler (spec §6) performs best-effort, fire-and-forget session
// bookkeeping so a later Single Logout request can be correlated back to
// this authentication. Processing of the SLO request itself is out of
// scope (spec §1); only this recording hook is.
type LogoutHandler interface {
	RecordSession(sessionIndex, nameID string)
}

// sessionClaims is the JWT payload used to encode a logout-tracking key.
// Encoding it as a signed token, rather than a bare concatenated string,
// means the bookkeeping key stays tamper-evident if it is ever round-tripped
// through a client-visible cookie — the same role JWT plays elsewhere in
// the teacher's dependency graph, generalized to logout bookkeeping.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionIndex string `json:"sid"`
}

// JWTLogoutHandler is a reference LogoutHandler: it signs a compact
// bookkeeping token for (sessionIndex, nameID) and stores it in an
// in-memory map keyed by nameID, the way a real binding layer would persist
// it to the logout store spec §1 treats as external.
type JWTLogoutHandler struct {
	mu      sync.Mutex
	signKey []byte
	tokens  map[string]string // nameID -> signed bookkeeping token
}

// NewJWTLogoutHandler builds a handler signing bookkeeping tokens with
// HMAC-SHA256 under signKey.
func NewJWTLogoutHandler(signKey []byte) *JWTLogoutHandler {
	return &JWTLogoutHandler{signKey: signKey, tokens: make(map[string]string)}
}

// RecordSession implements LogoutHandler. Signing or storage failures are
// swallowed: this bookkeeping is explicitly best-effort and must never
// affect the outcome of Validate.
func (h *JWTLogoutHandler) RecordSession(sessionIndex, nameID string) {
	if nameID == "" {
		return
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   nameID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		SessionIndex: sessionIndex,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.signKey)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokens[nameID] = signed
}

// TokenFor returns the most recently recorded bookkeeping token for nameID,
// for tests and SLO correlation.
func (h *JWTLogoutHandler) TokenFor(nameID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tokens[nameID]
	return t, ok
}

// NoopLogoutHandler discards every recorded session; used when a caller has
// no logout bookkeeping needs.
type NoopLogoutHandler struct{}

func (NoopLogoutHandler) RecordSession(string, string) {}
