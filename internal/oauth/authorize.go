package oauth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/lumenauth/authd/internal/events"
	"github.com/lumenauth/authd/internal/models"
)

// Authorize implements "GET /authorize" authorization code issuance
// (spec §4.4). It returns a *Error for failures that must be rendered as
// JSON (steps 1-5, before the redirect URI is trusted); failures after
// that point are encoded on the *Result's RedirectURL instead, which the
// host must render as a 302 even though no Go error occurred.
func (e *Engine) Authorize(ctx context.Context, req *Request) (*Result, *Error) {
	if req.QueryParam("response_type") != "code" {
		return nil, ErrInvalidRequest("response_type must be \"code\"")
	}

	clientID := req.QueryParam("client_id")
	if clientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}

	client, err := e.Clients.Find(ctx, clientID)
	if err != nil {
		return nil, ErrInvalidClient("unknown client")
	}
	if client.Revoked {
		return nil, ErrInvalidClient("client has been revoked")
	}

	if !client.AllowsGrant(models.GrantAuthorizationCode) {
		return nil, ErrInvalidRequest("client is not permitted to use the authorization_code grant")
	}

	redirectURI := req.QueryParam("redirect_uri")
	if redirectURI == "" || !client.HasRedirectURI(redirectURI) {
		return nil, ErrInvalidRequest("redirect_uri is missing or not registered for this client")
	}

	state := req.QueryParam("state")

	codeChallenge := req.QueryParam("code_challenge")
	codeChallengeMethod := req.QueryParam("code_challenge_method")
	if codeChallenge == "" && !client.Confidential {
		return e.redirectError(redirectURI, ErrInvalidRequest("code_challenge is required for public clients"), state), nil
	}
	if codeChallenge != "" {
		if codeChallengeMethod == "" {
			codeChallengeMethod = string(models.PKCEMethodPlain)
		}
		if codeChallengeMethod != string(models.PKCEMethodS256) && codeChallengeMethod != string(models.PKCEMethodPlain) {
			return e.redirectError(redirectURI, ErrInvalidRequest("code_challenge_method must be S256 or plain"), state), nil
		}
	}

	var clientAllowed []string
	if client.Scopes != nil {
		clientAllowed = []string(*client.Scopes)
	}
	requested := splitScopes(req.QueryParam("scope"))
	effectiveScopes, scopeErr := e.Scopes.Validate(requested, clientAllowed, e.defaultScopes())
	if scopeErr != nil {
		return e.redirectError(redirectURI, ErrInvalidScope(scopeErr.Error()), state), nil
	}

	pending := pendingAuthRequest{
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scopes:              joinScopes(effectiveScopes),
		State:               state,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
	}
	req.Session.Put(authRequestSessionKey, pending.toSessionValue())

	if client.FirstParty {
		result, issueErr := e.issueCode(ctx, req, pending)
		if issueErr != nil {
			return e.redirectError(redirectURI, issueErr, state), nil
		}
		return result, nil
	}

	scopeDescs := e.Scopes.Describe(effectiveScopes)
	if e.Consent != nil {
		result, renderErr := e.Consent.Render(client, scopeDescs, state)
		if renderErr != nil {
			return nil, ErrServerError(renderErr.Error())
		}
		return result, nil
	}

	return &Result{
		Status: 200,
		JSON: map[string]interface{}{
			"authorization_required": true,
			"client": map[string]string{
				"id":   client.ID,
				"name": client.Name,
			},
			"scopes": scopeDescs,
			"state":  state,
		},
	}, nil
}

// ResolveConsent implements "POST /authorize" consent resolution (spec
// §4.4). It always clears the pending session entry, per the spec's
// "clears it unconditionally" step.
func (e *Engine) ResolveConsent(ctx context.Context, req *Request) (*Result, *Error) {
	raw, ok := req.Session.Get(authRequestSessionKey)
	req.Session.Delete(authRequestSessionKey)
	if !ok {
		return nil, ErrInvalidRequest("no pending authorization request")
	}
	pending := pendingAuthRequestFromSessionValue(raw)

	if !isApproved(req.Param("approved")) {
		errResult := e.redirectError(pending.RedirectURI, ErrAccessDenied("the user denied the authorization request"), pending.State)
		return errResult, nil
	}

	result, err := e.issueCode(ctx, req, pending)
	if err != nil {
		return e.redirectError(pending.RedirectURI, err, pending.State), nil
	}
	return result, nil
}

// issueCode implements steps 12-15, shared by the first-party-skip path and
// consent approval: resolve the user, mint a code, and build the redirect.
func (e *Engine) issueCode(ctx context.Context, req *Request, pending pendingAuthRequest) (*Result, *Error) {
	userID, err := ResolveUserID(req.User)
	if err != nil {
		return nil, ErrServerError(fmt.Sprintf("could not resolve authenticated user: %v", err))
	}

	plain, row, createErr := e.AuthCodes.Create(ctx, authCodeParamsFromPending(pending, userID, e.Config.AuthCodeLifetime))
	if createErr != nil {
		return nil, ErrServerError(createErr.Error())
	}

	redirectURL := buildRedirectURL(pending.RedirectURI, map[string]string{
		"code":  plain,
		"state": pending.State,
	})

	if e.Events != nil {
		e.Events.Emit(events.Event{Kind: events.CodeIssued, ClientID: pending.ClientID, UserID: userID, CodeID: row.ID})
	}

	return &Result{Status: 302, RedirectURL: redirectURL}, nil
}

// redirectError builds the redirect-URI-encoded error form used once the
// redirect URI has been validated (spec §7: "only after the redirect URI
// has been validated"). Callers holding an unvalidated URI must render the
// error as JSON instead; never call this before step 5 of Authorize.
func (e *Engine) redirectError(redirectURI string, oauthErr *Error, state string) *Result {
	params := map[string]string{
		"error":             oauthErr.Code,
		"error_description": oauthErr.Description,
	}
	if state != "" {
		params["state"] = state
	}
	return &Result{Status: 302, RedirectURL: buildRedirectURL(redirectURI, params)}
}

func buildRedirectURL(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isApproved(v string) bool {
	return v == "true" || v == "1" || v == "yes" || v == "on"
}
