package mock

import (
	"encoding/json"
	"net/http"
	"strings"
)

// defaultResourceHandler simulates a protected resource echoing the request
func (m *AuthenticationService) defaultResourceHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	m.recordAuthorization(authHeader)
	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	subject, err := m.verifyJWT(raw)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, invalidTokenDetail)
		return
	}
	var payload interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":   subject,
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"body":   payload,
	})
}
