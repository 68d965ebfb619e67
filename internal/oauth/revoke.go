package oauth

import (
	"context"

	"github.com/lumenauth/authd/internal/events"
)

// Revoke implements "POST /revoke" (spec §4.4, RFC 7009).
func (e *Engine) Revoke(ctx context.Context, req *Request) (*Result, *Error) {
	token := req.Param("token")
	if token == "" {
		return nil, ErrInvalidRequest("token is required")
	}

	if err := e.authenticateOptionalClient(ctx, req); err != nil {
		return nil, err
	}

	if row, err := e.Tokens.Validate(ctx, token); err == nil {
		if revokeErr := e.Tokens.Revoke(ctx, row.ID); revokeErr != nil {
			return nil, ErrServerError(revokeErr.Error())
		}
		if e.Events != nil {
			userID := ""
			if row.UserID != nil {
				userID = *row.UserID
			}
			e.Events.Emit(events.Event{Kind: events.TokenRevoked, ClientID: row.ClientID, UserID: userID, TokenID: row.ID})
		}
		return &Result{Status: 200, JSON: map[string]interface{}{}}, nil
	}

	if row, err := e.Tokens.ValidateRefresh(ctx, token); err == nil {
		if revokeErr := e.Tokens.Revoke(ctx, row.ID); revokeErr != nil {
			return nil, ErrServerError(revokeErr.Error())
		}
		if e.Events != nil {
			userID := ""
			if row.UserID != nil {
				userID = *row.UserID
			}
			e.Events.Emit(events.Event{Kind: events.TokenRevoked, ClientID: row.ClientID, UserID: userID, TokenID: row.ID})
		}
	}

	// RFC 7009: always 200 when the token parameter was present, regardless
	// of whether a matching row existed, so callers can't probe for valid
	// token existence.
	return &Result{Status: 200, JSON: map[string]interface{}{}}, nil
}

// authenticateOptionalClient implements the conditional client
// authentication shared by /revoke and /introspect (spec §4.4, §9): a
// client id without a secret silently skips authentication, per RFC 7009.
func (e *Engine) authenticateOptionalClient(ctx context.Context, req *Request) *Error {
	clientID := req.Param("client_id")
	if clientID == "" {
		return nil
	}

	client, err := e.Clients.Find(ctx, clientID)
	if err != nil || client.Revoked {
		return ErrInvalidClient("unknown or revoked client")
	}

	if secret := req.Param("client_secret"); client.Confidential && secret != "" {
		if !e.Clients.VerifySecret(client, secret) {
			return ErrInvalidClient("invalid client_secret")
		}
	}
	return nil
}
