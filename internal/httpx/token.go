package httpx

import (
	"encoding/json"
	"net/http"
)

// ForwardAuth validates the shared forward token the widget embeds in
// every non-chat request. The token may arrive in the body, the query
// string, or the X-Forward-Token header.
type ForwardAuth struct {
	token string
}

func NewForwardAuth(token string) *ForwardAuth {
	return &ForwardAuth{token: token}
}

// Check writes a 403 and returns false when the request token does not
// match. bodyToken is the token already decoded from the request body,
// empty when the body carries none.
func (a *ForwardAuth) Check(w http.ResponseWriter, r *http.Request, bodyToken string) bool {
	token := bodyToken
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		token = r.Header.Get("X-Forward-Token")
	}

	if token != a.token {
		WriteError(w, http.StatusForbidden, "Invalid token")
		return false
	}
	return true
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
