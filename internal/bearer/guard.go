// Package bearer implements the Bearer Guard (spec §4.5): API-route
// middleware that validates an Authorization header against the
// Credential Store and attaches the resolved token/client to the request.
package bearer

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenauth/authd/internal/credential"
	"github.com/lumenauth/authd/internal/models"
)

// ErrUnauthenticated is returned when the Authorization header is absent
// or malformed.
var ErrUnauthenticated = fmt.Errorf("bearer: unauthenticated")

// ErrInvalidToken is returned when the bearer suffix fails validation, or
// its bound user cannot be resolved.
var ErrInvalidToken = fmt.Errorf("bearer: invalid_token")

// ErrInsufficientScope is returned by RequireScopes when the validated
// token is missing one or more required scopes.
type ErrInsufficientScope struct {
	Missing []string
}

func (e *ErrInsufficientScope) Error() string {
	return "bearer: insufficient_scope: missing " + strings.Join(e.Missing, ", ")
}

// UserResolver loads the user identified by a token's user id. The Guard
// calls it only when the token carries a non-nil user id (client
// credentials tokens have none).
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (interface{}, error)
}

// Authenticated is what the Guard attaches to a successfully validated
// request: the token row, the resolved client (when found), and the
// resolved user (when the token carries one).
type Authenticated struct {
	Token  *models.Token
	Client *models.Client
	User   interface{}
}

// Guard implements the algorithm of spec §4.5.
type Guard struct {
	Tokens   *credential.TokenStore
	Clients  *credential.ClientStore
	Resolver UserResolver
}

// NewGuard wires the Bearer Guard's dependencies. Resolver may be nil, in
// which case Authenticate rejects every token that carries a user id and
// admits only client credentials tokens.
func NewGuard(tokens *credential.TokenStore, clients *credential.ClientStore, resolver UserResolver) *Guard {
	return &Guard{Tokens: tokens, Clients: clients, Resolver: resolver}
}

// Authenticate runs steps 1-4 of spec §4.5 against a raw Authorization
// header value.
func (g *Guard) Authenticate(ctx context.Context, authorizationHeader string) (*Authenticated, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorizationHeader, prefix) {
		return nil, ErrUnauthenticated
	}
	suffix := strings.TrimPrefix(authorizationHeader, prefix)
	if suffix == "" {
		return nil, ErrUnauthenticated
	}

	token, err := g.Tokens.Validate(ctx, suffix)
	if err != nil {
		return nil, ErrInvalidToken
	}

	result := &Authenticated{Token: token}

	if token.UserID != nil {
		if g.Resolver == nil {
			return nil, ErrInvalidToken
		}
		user, err := g.Resolver.Resolve(ctx, *token.UserID)
		if err != nil || user == nil {
			return nil, ErrInvalidToken
		}
		result.User = user
	}

	if client, err := g.Clients.Find(ctx, token.ClientID); err == nil {
		result.Client = client
	}

	return result, nil
}

// RequireScopes implements the scope-enforcement middleware of spec §4.5:
// given the token previously attached by Authenticate, it computes
// required \ tokenScopes and fails if that set is non-empty.
func RequireScopes(token *models.Token, required []string) *ErrInsufficientScope {
	granted := make(map[string]struct{}, len(token.Scopes))
	for _, s := range token.Scopes {
		granted[s] = struct{}{}
	}

	var missing []string
	for _, r := range required {
		if _, ok := granted[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ErrInsufficientScope{Missing: missing}
}
