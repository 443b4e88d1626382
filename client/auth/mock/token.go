package mock

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// defaultLoginHandler handles POST /login/ with {username,password}
func (m *AuthenticationService) defaultLoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	m.loginCalls.Add(1)
	var login struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&login); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"non_field_errors": []string{"Invalid payload."}})
		return
	}
	if login.Username == "" || login.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"username": []string{"This field is required."}})
		return
	}
	if password, ok := m.Users[login.Username]; !ok || password != login.Password {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	access, err := m.createJWT(login.Username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Server error")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: uuid.NewString(), Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": m.issueRefresh(login.Username)})
}

// defaultRefreshHandler handles POST /token/refresh/ with {refresh}
func (m *AuthenticationService) defaultRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	m.refreshCalls.Add(1)
	if m.RefreshDelay > 0 {
		select {
		case <-time.After(m.RefreshDelay):
		case <-r.Context().Done():
			return
		}
	}
	var request struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"refresh": []string{"This field is required."}})
		return
	}
	if m.rejectRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, invalidTokenDetail)
		return
	}
	var subject string
	var ok bool
	if m.SingleUse || m.Rotate {
		subject, ok = m.refreshTokens.Take(request.Refresh)
	} else {
		subject, ok = m.refreshTokens.Get(request.Refresh)
	}
	if !ok {
		writeDetail(w, http.StatusUnauthorized, invalidTokenDetail)
		return
	}
	access, err := m.createJWT(subject)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Server error")
		return
	}
	response := map[string]string{"access": access}
	if m.Rotate {
		response["refresh"] = m.issueRefresh(subject)
	}
	writeJSON(w, http.StatusOK, response)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
