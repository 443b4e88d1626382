package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNoCredentials is returned by updates when no scope holds credentials.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrInvalidCredentials is returned when writing an empty credential pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidScope is returned for a scope other than Durable or Ephemeral.
	ErrInvalidScope = errors.New("invalid storage scope")
	// ErrSuperseded is returned when the stored refresh token is no longer the
	// one an update was derived from, e.g. after a new login.
	ErrSuperseded = errors.New("credentials superseded")
)

// Scope is the persistence lifetime class holding the active credential pair.
type Scope string

const (
	// Durable survives process restarts ("remember me").
	Durable Scope = "durable"
	// Ephemeral lives as long as the process (session only).
	Ephemeral Scope = "ephemeral"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == Durable || s == Ephemeral
}

// Other returns the mutually exclusive counterpart of s.
func (s Scope) Other() Scope {
	if s == Durable {
		return Ephemeral
	}
	return Durable
}

// ParseScope converts a scope name into a Scope.
func ParseScope(name string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(name)))
	if !scope.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, name)
	}
	return scope, nil
}

// Credentials is the access/refresh token pair issued at login.
type Credentials struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IsEmpty reports whether neither token is set.
func (c *Credentials) IsEmpty() bool {
	return c == nil || (c.Access == "" && c.Refresh == "")
}

// Clone returns a copy of c.
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	ret := *c
	return &ret
}

// String keeps token values out of logs.
func (c *Credentials) String() string {
	if c == nil {
		return "Credentials<nil>"
	}
	return fmt.Sprintf("Credentials<Access: %s, Refresh: %s>", redact(c.Access), redact(c.Refresh))
}

func redact(token string) string {
	if token == "" {
		return "none"
	}
	return "redacted"
}

// Backend persists a single credential pair for one scope.
// Load returns nil, nil when nothing is stored.
type Backend interface {
	Load(ctx context.Context) (*Credentials, error)
	Save(ctx context.Context, credentials *Credentials) error
	Delete(ctx context.Context) error
}

// Store keeps the credential pair in exactly one of two scopes.
type Store interface {
	// Read returns the populated scope's credentials or nil when none are stored.
	Read(ctx context.Context) (*Credentials, error)
	// Write stores credentials in scope and empties the other scope.
	Write(ctx context.Context, credentials *Credentials, scope Scope) error
	// UpdateAccess replaces the access token in the active scope, provided it
	// still holds the exchanged refresh token.
	UpdateAccess(ctx context.Context, exchanged, access string) error
	// Rotate replaces both tokens in the active scope, provided it still holds
	// the exchanged refresh token.
	Rotate(ctx context.Context, exchanged string, credentials *Credentials) error
	// Revoke empties both scopes if the active one holds the exchanged refresh token.
	Revoke(ctx context.Context, exchanged string) error
	// Clear empties both scopes.
	Clear(ctx context.Context) error
	// Scope returns the active scope, false when none is populated.
	Scope(ctx context.Context) (Scope, bool, error)
	// Lookup returns what a single scope holds.
	Lookup(ctx context.Context, scope Scope) (*Credentials, error)
}

// Scoped is a Store composed of one Backend per scope. All operations run
// under a single mutex so no caller observes both scopes populated.
type Scoped struct {
	mux       sync.Mutex
	durable   Backend
	ephemeral Backend
}

// New creates a Store backed by the supplied durable and ephemeral backends.
// A nil backend is replaced with a memory backend.
func New(durable, ephemeral Backend) *Scoped {
	if durable == nil {
		durable = NewMemoryBackend()
	}
	if ephemeral == nil {
		ephemeral = NewMemoryBackend()
	}
	return &Scoped{durable: durable, ephemeral: ephemeral}
}

// NewMemory creates a Store with memory backends for both scopes.
func NewMemory() *Scoped {
	return New(NewMemoryBackend(), NewMemoryBackend())
}

func (s *Scoped) backend(scope Scope) Backend {
	if scope == Durable {
		return s.durable
	}
	return s.ephemeral
}

func (s *Scoped) Read(ctx context.Context) (*Credentials, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	_, credentials, err := s.active(ctx)
	return credentials, err
}

// active returns the first populated scope, durable first. Caller holds the lock.
func (s *Scoped) active(ctx context.Context) (Scope, *Credentials, error) {
	for _, scope := range []Scope{Durable, Ephemeral} {
		credentials, err := s.backend(scope).Load(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load %s credentials: %w", scope, err)
		}
		if !credentials.IsEmpty() {
			return scope, credentials, nil
		}
	}
	return "", nil, nil
}

func (s *Scoped) Write(ctx context.Context, credentials *Credentials, scope Scope) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	if credentials.IsEmpty() {
		return ErrInvalidCredentials
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	// the other scope goes first: a failed save leaves neither populated, never both
	if err := s.backend(scope.Other()).Delete(ctx); err != nil {
		return fmt.Errorf("failed to clear %s credentials: %w", scope.Other(), err)
	}
	if err := s.backend(scope).Save(ctx, credentials.Clone()); err != nil {
		return fmt.Errorf("failed to save %s credentials: %w", scope, err)
	}
	return nil
}

// holding returns the active scope if it still holds the exchanged refresh token. Caller holds the lock.
func (s *Scoped) holding(ctx context.Context, exchanged string) (Scope, *Credentials, error) {
	scope, credentials, err := s.active(ctx)
	if err != nil {
		return "", nil, err
	}
	if credentials == nil {
		return "", nil, ErrNoCredentials
	}
	if credentials.Refresh != exchanged {
		return "", nil, ErrSuperseded
	}
	return scope, credentials, nil
}

func (s *Scoped) UpdateAccess(ctx context.Context, exchanged, access string) error {
	if access == "" {
		return ErrInvalidCredentials
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	scope, credentials, err := s.holding(ctx, exchanged)
	if err != nil {
		return err
	}
	updated := credentials.Clone()
	updated.Access = access
	if err = s.backend(scope).Save(ctx, updated); err != nil {
		return fmt.Errorf("failed to update %s access token: %w", scope, err)
	}
	return nil
}

func (s *Scoped) Rotate(ctx context.Context, exchanged string, credentials *Credentials) error {
	if credentials.IsEmpty() || credentials.Access == "" {
		return ErrInvalidCredentials
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	scope, current, err := s.holding(ctx, exchanged)
	if err != nil {
		return err
	}
	updated := credentials.Clone()
	if updated.Refresh == "" {
		updated.Refresh = current.Refresh
	}
	if err = s.backend(scope).Save(ctx, updated); err != nil {
		return fmt.Errorf("failed to rotate %s credentials: %w", scope, err)
	}
	return nil
}

func (s *Scoped) Revoke(ctx context.Context, exchanged string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, _, err := s.holding(ctx, exchanged); err != nil {
		return err
	}
	return s.clear(ctx)
}

func (s *Scoped) Clear(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.clear(ctx)
}

func (s *Scoped) clear(ctx context.Context) error {
	var errs []error
	for _, scope := range []Scope{Durable, Ephemeral} {
		if err := s.backend(scope).Delete(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear %s credentials: %w", scope, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scoped) Scope(ctx context.Context) (Scope, bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	scope, credentials, err := s.active(ctx)
	if err != nil || credentials == nil {
		return "", false, err
	}
	return scope, true, nil
}

func (s *Scoped) Lookup(ctx context.Context, scope Scope) (*Credentials, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	credentials, err := s.backend(scope).Load(ctx)
	if err != nil || credentials.IsEmpty() {
		return nil, err
	}
	return credentials, nil
}

// MemoryBackend keeps the pair in process memory.
type MemoryBackend struct {
	mu          sync.RWMutex
	credentials *Credentials
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(ctx context.Context) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credentials.Clone(), nil
}

func (m *MemoryBackend) Save(ctx context.Context, credentials *Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials = credentials.Clone()
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials = nil
	return nil
}
