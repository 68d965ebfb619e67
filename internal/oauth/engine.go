package oauth

import (
	"strings"
	"time"

	"github.com/lumenauth/authd/internal/config"
	"github.com/lumenauth/authd/internal/credential"
	"github.com/lumenauth/authd/internal/events"
	"github.com/lumenauth/authd/internal/models"
	"github.com/lumenauth/authd/internal/scopes"
	"github.com/sirupsen/logrus"
)

// authCodeParamsFromPending adapts the session-persisted pending request
// into the credential store's creation params.
func authCodeParamsFromPending(p pendingAuthRequest, userID string, lifetime time.Duration) credential.AuthCodeParams {
	return credential.AuthCodeParams{
		ClientID:            p.ClientID,
		UserID:              userID,
		RedirectURI:         p.RedirectURI,
		Scopes:              splitScopes(p.Scopes),
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		Lifetime:            lifetime,
	}
}

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// authRequestSessionKey is the session key under which GET /authorize
// stashes the pending request for POST /authorize to resume (spec §4.4
// step 9).
const authRequestSessionKey = "_oauth2_auth_request"

// Engine is the Grant Protocol Engine (spec §4.4): it holds no per-request
// state and is safe to share across every request goroutine, since its
// dependencies are either stateless (credential stores wrap a pooled
// *gorm.DB) or internally synchronized (the scope registry).
type Engine struct {
	Clients   *credential.ClientStore
	Tokens    *credential.TokenStore
	AuthCodes *credential.AuthCodeStore
	Scopes    *scopes.Registry
	Config    *config.Config
	Events    *events.Emitter

	// Consent is the optional capability from spec §4.4 step 10. Nil means
	// "render the bare JSON authorization_required payload".
	Consent ConsentRenderer
}

// NewEngine wires the Grant Protocol Engine's dependencies.
func NewEngine(clients *credential.ClientStore, tokens *credential.TokenStore, codes *credential.AuthCodeStore, registry *scopes.Registry, cfg *config.Config, emitter *events.Emitter) *Engine {
	return &Engine{
		Clients:   clients,
		Tokens:    tokens,
		AuthCodes: codes,
		Scopes:    registry,
		Config:    cfg,
		Events:    emitter,
	}
}

// pendingAuthRequest is the shape persisted to the session at GET
// /authorize and consumed at POST /authorize.
type pendingAuthRequest struct {
	ClientID            string
	RedirectURI         string
	Scopes              string // space-joined, to fit the string-map SessionStore
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

func (p pendingAuthRequest) toSessionValue() map[string]string {
	return map[string]string{
		"client_id":             p.ClientID,
		"redirect_uri":          p.RedirectURI,
		"scopes":                p.Scopes,
		"state":                 p.State,
		"code_challenge":        p.CodeChallenge,
		"code_challenge_method": p.CodeChallengeMethod,
	}
}

func pendingAuthRequestFromSessionValue(v map[string]string) pendingAuthRequest {
	return pendingAuthRequest{
		ClientID:            v["client_id"],
		RedirectURI:         v["redirect_uri"],
		Scopes:              v["scopes"],
		State:               v["state"],
		CodeChallenge:       v["code_challenge"],
		CodeChallengeMethod: v["code_challenge_method"],
	}
}

// tokenEnvelope is the success response of spec §4.4 "POST /token":
// {access_token, token_type, expires_in, scope, refresh_token?}.
type tokenEnvelope struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// expiresIn computes floor((expiresAt-now)/1s), matching spec §4.4's
// "floor((expires_at - now) / 1000)" (the reference counts milliseconds;
// Go's time.Duration already tracks nanoseconds, so this truncates to
// whole seconds directly).
func expiresIn(expiresAt time.Time) int64 {
	d := time.Until(expiresAt)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

func joinScopes(s []string) string {
	return strings.Join(s, " ")
}

// splitScopes treats "" or an all-whitespace string as unspecified (spec
// §8 boundary behavior), returning an empty list so callers substitute
// defaults.
func splitScopes(s string) []string {
	return strings.Fields(s)
}

// defaultScopes substitutes for an empty requested scope list.
func (e *Engine) defaultScopes() []string {
	return e.Config.DefaultScopes
}

// buildTokenResponse renders the shared success envelope for a token row.
func buildTokenResponse(plainAccess, plainRefresh string, row *models.Token) *Result {
	env := tokenEnvelope{
		AccessToken: plainAccess,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn(row.ExpiresAt),
		Scope:       joinScopes(row.Scopes),
	}
	if plainRefresh != "" {
		env.RefreshToken = plainRefresh
	}
	return &Result{Status: 200, JSON: env}
}
