package oauth

import (
	"context"
	"strings"

	"github.com/lumenauth/authd/internal/config"
	"github.com/lumenauth/authd/internal/credential"
	"github.com/lumenauth/authd/internal/events"
	"github.com/lumenauth/authd/internal/models"
)

// Token implements "POST /token" token issuance (spec §4.4), branching
// on grant_type.
func (e *Engine) Token(ctx context.Context, req *Request) (*Result, *Error) {
	switch req.Param("grant_type") {
	case "authorization_code":
		return e.tokenAuthorizationCode(ctx, req)
	case "client_credentials":
		return e.tokenClientCredentials(ctx, req)
	case "refresh_token":
		return e.tokenRefreshToken(ctx, req)
	case "":
		return nil, ErrInvalidRequest("grant_type is required")
	default:
		return nil, ErrUnsupportedGrantType("unsupported grant_type")
	}
}

func (e *Engine) tokenAuthorizationCode(ctx context.Context, req *Request) (*Result, *Error) {
	code := req.Param("code")
	redirectURI := req.Param("redirect_uri")
	clientID := req.Param("client_id")
	if code == "" || redirectURI == "" || clientID == "" {
		return nil, ErrInvalidRequest("code, redirect_uri, and client_id are required")
	}

	client, authErr := e.authenticateClient(ctx, req, clientID)
	if authErr != nil {
		return nil, authErr
	}

	codeVerifier := req.Param("code_verifier")
	row, err := e.AuthCodes.Consume(ctx, code, clientID, redirectURI, codeVerifier)
	if err != nil {
		return nil, ErrServerError(err.Error())
	}
	if row == nil {
		return nil, ErrInvalidGrant("authorization code is invalid, expired, or already used")
	}

	issueRefresh := client.AllowsGrant(models.GrantRefreshToken)
	userID := row.UserID
	plainAccess, plainRefresh, tokenRow, createErr := e.Tokens.Create(ctx, tokenParams(clientID, &userID, nil, row.Scopes, issueRefresh, e.Config))
	if createErr != nil {
		return nil, ErrServerError(createErr.Error())
	}

	if e.Events != nil {
		e.Events.Emit(events.Event{Kind: events.TokenIssued, ClientID: clientID, UserID: userID, TokenID: tokenRow.ID})
	}

	return buildTokenResponse(plainAccess, plainRefresh, tokenRow), nil
}

func (e *Engine) tokenClientCredentials(ctx context.Context, req *Request) (*Result, *Error) {
	clientID := req.Param("client_id")
	clientSecret := req.Param("client_secret")
	if clientID == "" || clientSecret == "" {
		return nil, ErrInvalidRequest("client_id and client_secret are required")
	}

	client, err := e.Clients.Find(ctx, clientID)
	if err != nil {
		return nil, ErrInvalidClient("unknown client")
	}
	if client.Revoked {
		return nil, ErrInvalidClient("client has been revoked")
	}
	if !client.Confidential {
		return nil, ErrInvalidClient("client_credentials requires a confidential client")
	}
	if !client.AllowsGrant(models.GrantClientCredentials) {
		return nil, ErrInvalidGrant("client is not permitted to use the client_credentials grant")
	}
	if !e.Clients.VerifySecret(client, clientSecret) {
		return nil, ErrInvalidClient("invalid client_secret")
	}

	var clientAllowed []string
	if client.Scopes != nil {
		clientAllowed = []string(*client.Scopes)
	}
	effectiveScopes, scopeErr := e.Scopes.Validate(splitScopes(req.Param("scope")), clientAllowed, e.defaultScopes())
	if scopeErr != nil {
		return nil, ErrInvalidScope(scopeErr.Error())
	}

	plainAccess, _, tokenRow, createErr := e.Tokens.Create(ctx, tokenParams(clientID, nil, nil, effectiveScopes, false, e.Config))
	if createErr != nil {
		return nil, ErrServerError(createErr.Error())
	}

	if e.Events != nil {
		e.Events.Emit(events.Event{Kind: events.TokenIssued, ClientID: clientID, TokenID: tokenRow.ID})
	}

	return buildTokenResponse(plainAccess, "", tokenRow), nil
}

func (e *Engine) tokenRefreshToken(ctx context.Context, req *Request) (*Result, *Error) {
	refreshToken := req.Param("refresh_token")
	clientID := req.Param("client_id")
	if refreshToken == "" || clientID == "" {
		return nil, ErrInvalidRequest("refresh_token and client_id are required")
	}

	_, authErr := e.authenticateClient(ctx, req, clientID)
	if authErr != nil {
		return nil, authErr
	}

	oldToken, err := e.Tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, ErrInvalidGrant("refresh token is invalid, expired, or revoked")
	}
	if oldToken.ClientID != clientID {
		return nil, ErrInvalidGrant("refresh token was not issued to this client")
	}

	newScopes := oldToken.Scopes
	if requested := req.Param("scope"); strings.TrimSpace(requested) != "" {
		requestedScopes := splitScopes(requested)
		widened := widenedScopes(requestedScopes, oldToken.Scopes)
		if len(widened) > 0 {
			return nil, ErrInvalidRequest("requested scope widens the original grant: " + strings.Join(widened, ", "))
		}
		newScopes = requestedScopes
	}

	// Revoke-and-reissue runs inside one transaction: the old refresh token
	// must not be usable again, but only once its replacement is actually
	// persisted (spec §4.4, §8).
	plainAccess, plainRefresh, newRow, rotateErr := e.Tokens.RotateRefresh(ctx, oldToken.ID, tokenParams(clientID, oldToken.UserID, nil, newScopes, true, e.Config))
	if rotateErr != nil {
		return nil, ErrServerError(rotateErr.Error())
	}

	if e.Events != nil {
		userID := ""
		if oldToken.UserID != nil {
			userID = *oldToken.UserID
		}
		e.Events.Emit(events.Event{Kind: events.TokenRefreshed, ClientID: clientID, UserID: userID, TokenID: newRow.ID})
	}

	return buildTokenResponse(plainAccess, plainRefresh, newRow), nil
}

// authenticateClient implements the conditional client authentication
// shared by the authorization_code and refresh_token branches: the client
// must exist and not be revoked; if confidential, its secret must also be
// supplied and verify.
func (e *Engine) authenticateClient(ctx context.Context, req *Request, clientID string) (*models.Client, *Error) {
	client, err := e.Clients.Find(ctx, clientID)
	if err != nil {
		return nil, ErrInvalidClient("unknown client")
	}
	if client.Revoked {
		return nil, ErrInvalidClient("client has been revoked")
	}
	if client.Confidential {
		secret := req.Param("client_secret")
		if secret == "" || !e.Clients.VerifySecret(client, secret) {
			return nil, ErrInvalidClient("invalid client_secret")
		}
	}
	return client, nil
}

// widenedScopes returns the subset of requested not present in original;
// a non-empty result means the caller asked for more than the token
// originally carried, which refresh must reject (spec §4.4).
func widenedScopes(requested, original []string) []string {
	allowed := make(map[string]struct{}, len(original))
	for _, s := range original {
		allowed[s] = struct{}{}
	}
	var widened []string
	for _, s := range requested {
		if _, ok := allowed[s]; !ok {
			widened = append(widened, s)
		}
	}
	return widened
}

func tokenParams(clientID string, userID *string, name *string, scopeList []string, issueRefresh bool, cfg *config.Config) credential.TokenParams {
	return credential.TokenParams{
		UserID:               userID,
		ClientID:             clientID,
		Name:                 name,
		Scopes:               scopeList,
		IssueRefresh:         issueRefresh,
		AccessTokenLifetime:  cfg.AccessTokenLifetime,
		RefreshTokenLifetime: cfg.RefreshTokenLifetime,
	}
}
