package oauth

import "context"

// introspectionResponse is the RFC 7662 success shape.
type introspectionResponse struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
}

// Introspect implements "POST /introspect" (spec §4.4, RFC 7662).
func (e *Engine) Introspect(ctx context.Context, req *Request) (*Result, *Error) {
	token := req.Param("token")
	if token == "" {
		return nil, ErrInvalidRequest("token is required")
	}

	if err := e.authenticateOptionalClient(ctx, req); err != nil {
		return nil, err
	}

	row, err := e.Tokens.Validate(ctx, token)
	if err != nil {
		return &Result{Status: 200, JSON: introspectionResponse{Active: false}}, nil
	}

	resp := introspectionResponse{
		Active:    true,
		Scope:     joinScopes(row.Scopes),
		ClientID:  row.ClientID,
		TokenType: "Bearer",
		Exp:       row.ExpiresAt.Unix(),
		Iat:       row.CreatedAt.Unix(),
	}
	if row.UserID != nil {
		resp.Sub = *row.UserID
	}

	return &Result{Status: 200, JSON: resp}, nil
}
