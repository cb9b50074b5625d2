package http

import (
	"encoding/json"
	"net/http"

	"github.com/boomi-gateway/datahub-gateway/internal/service"
)

// introspectionResponse is the RFC 7662 response body. Inactive tokens
// return only {"active": false} -- no other claim is echoed back, per the
// RFC's guidance against leaking claims for tokens the caller can't use.
type introspectionResponse struct {
	Active      bool     `json:"active"`
	Subject     string   `json:"sub,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// OAuthHandlers exposes the resource server's /oauth/introspect and
// /oauth/revoke endpoints (RFC 7662/7009).
type OAuthHandlers struct {
	oauth *service.OAuthService
}

// NewOAuthHandlers constructs the OAuth HTTP handlers bound to an
// OAuthService.
func NewOAuthHandlers(oauth *service.OAuthService) *OAuthHandlers {
	return &OAuthHandlers{oauth: oauth}
}

// Introspect handles POST /oauth/introspect: validates the token in the
// form field "token" and reports its active claims.
func (h *OAuthHandlers) Introspect() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}
		token := r.FormValue("token")
		if token == "" {
			writeIntrospection(w, introspectionResponse{Active: false})
			return
		}

		clientID := ClientIDFromContext(r.Context())
		principal, err := h.oauth.ValidateBearer(r.Context(), token, clientID, clientID)
		if err != nil {
			writeIntrospection(w, introspectionResponse{Active: false})
			return
		}

		perms := make([]string, 0, len(principal.Permissions))
		for _, p := range principal.Permissions {
			perms = append(perms, string(p))
		}
		writeIntrospection(w, introspectionResponse{
			Active:      true,
			Subject:     principal.Subject,
			TokenType:   "Bearer",
			Permissions: perms,
		})
	})
}

// Revoke handles POST /oauth/revoke: revokes the token in the form field
// "token", honoring RFC 7009's always-succeed contract regardless of
// whether the token was known.
func (h *OAuthHandlers) Revoke() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}
		token := r.FormValue("token")
		hint := r.FormValue("token_type_hint")
		clientID := ClientIDFromContext(r.Context())

		if token != "" {
			h.oauth.RevokeToken(r.Context(), token, hint, clientID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func writeIntrospection(w http.ResponseWriter, resp introspectionResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
