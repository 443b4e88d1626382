package mock

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/restauth/internal/collection"
)

const (
	LoginPath          = "/login/"
	RefreshPath        = "/token/refresh/"
	LegacyRefreshPath  = "/refresh/"
	defaultAccessTTL   = 5 * time.Minute
	defaultTestUser    = "alice"
	defaultTestSecret  = "wonderland"
	invalidTokenDetail = "Given token not valid for any token type"
)

// AuthenticationService is a test backend issuing JWT access tokens and
// opaque refresh tokens the way a token-auth REST API does.
type AuthenticationService struct {
	Secret    []byte
	Issuer    string
	Users     map[string]string
	AccessTTL time.Duration
	// Rotate issues a new refresh token on every refresh.
	Rotate bool
	// SingleUse invalidates a refresh token once it was exchanged.
	SingleUse bool
	// RefreshDelay holds every refresh response for the given duration.
	RefreshDelay time.Duration

	LoginHandler    func(w http.ResponseWriter, r *http.Request)
	RefreshHandler  func(w http.ResponseWriter, r *http.Request)
	ResourceHandler func(w http.ResponseWriter, r *http.Request)

	generation    atomic.Int64
	rejectRefresh atomic.Bool
	refreshTokens *collection.SyncMap[string, string]
	loginCalls    atomic.Int32
	refreshCalls  atomic.Int32
	mux           sync.Mutex
	authorization []string
}

// NewAuthenticationService creates a test backend with a single user alice/wonderland.
func NewAuthenticationService(opts ...Option) (*AuthenticationService, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %v", err)
	}
	service := &AuthenticationService{
		Secret:        secret,
		Issuer:        "restauth-mock",
		Users:         map[string]string{defaultTestUser: defaultTestSecret},
		AccessTTL:     defaultAccessTTL,
		refreshTokens: collection.NewSyncMap[string, string](),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register registers HTTP handlers for all mock endpoints onto the given ServeMux.
func (m *AuthenticationService) Register(mux *http.ServeMux) {
	mux.Handle("/", &Handler{Server: m})
}

// Handler returns an http.Handler for all mock endpoints.
func (m *AuthenticationService) Handler() http.Handler {
	mux := http.NewServeMux()
	m.Register(mux)
	return mux
}

// Expire invalidates every access token issued so far.
func (m *AuthenticationService) Expire() {
	m.generation.Add(1)
}

// Revoke invalidates every refresh token issued so far.
func (m *AuthenticationService) Revoke() {
	m.refreshTokens.Clear()
}

// RejectRefresh makes the refresh endpoint answer 401 while reject is set.
func (m *AuthenticationService) RejectRefresh(reject bool) {
	m.rejectRefresh.Store(reject)
}

// LoginCalls returns the number of login requests served.
func (m *AuthenticationService) LoginCalls() int {
	return int(m.loginCalls.Load())
}

// RefreshCalls returns the number of refresh requests served.
func (m *AuthenticationService) RefreshCalls() int {
	return int(m.refreshCalls.Load())
}

// Authorizations returns the Authorization headers seen by protected resources.
func (m *AuthenticationService) Authorizations() []string {
	m.mux.Lock()
	defer m.mux.Unlock()
	return append([]string(nil), m.authorization...)
}

func (m *AuthenticationService) recordAuthorization(header string) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.authorization = append(m.authorization, header)
}
